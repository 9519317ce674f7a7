package agent

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultInstruction is the built-in system instruction for the event
// assistant. A YAML profile can override it without rebuilding.
const defaultInstruction = `你是一個 LINE 群組的活動助理，從自然語言訊息中判斷是否包含事件資訊。

你必須使用 get_current_time function 來解析「明天」、「下星期一」等模糊時間。

你應從最近兩則訊息中推理是否能夠組合成一個完整的事件。

請根據以下情況輸出 JSON：

1. 如果訊息與事件無關，請回傳：
{"type": "NoResponse"}

2. 如果訊息可能是事件，但資訊不完整（缺日期或時間），請回傳：
{"type": "NeedMoreDetails", "data": {"message": ... }}

3. 如果訊息是完整的事件，請回傳：
{"type": "Event", "data": {"title": ..., "date": ..., "time": ..., "note": ...}}

注意：
- title 為活動主題，例如「開會」、「打球」。
- note 可加入提醒，例如「請帶鉛筆盒」，若無則為空字串。
- 請不要重複問同樣問題。
- 若你已知前面訊息中已有資訊，就不要再次詢問。`

// Profile configures the agent's model and behavior.
type Profile struct {
	Model       string `yaml:"model"`
	Timezone    string `yaml:"timezone"`
	Instruction string `yaml:"instruction"`
}

// DefaultProfile returns the built-in profile.
func DefaultProfile() Profile {
	return Profile{
		Model:       "gemini-2.0-flash",
		Timezone:    "Asia/Taipei",
		Instruction: defaultInstruction,
	}
}

// LoadProfile reads a YAML profile file, filling unset fields from the
// default. An empty path returns the default profile unchanged.
func LoadProfile(path string, logger *slog.Logger) (Profile, error) {
	profile := DefaultProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("read profile %s: %w", path, err)
	}

	var override Profile
	if err := yaml.Unmarshal(data, &override); err != nil {
		return profile, fmt.Errorf("parse profile %s: %w", path, err)
	}

	if override.Model != "" {
		profile.Model = override.Model
	}
	if override.Timezone != "" {
		profile.Timezone = override.Timezone
	}
	if override.Instruction != "" {
		profile.Instruction = override.Instruction
	}

	logger.Info("agent profile loaded", "path", path, "model", profile.Model)
	return profile, nil
}
