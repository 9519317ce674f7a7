package runtime

import (
	"fmt"

	"google.golang.org/genai"
)

// The agent's two callable tools: current-time resolution (so relative
// dates like 「明天」 resolve against real time) and event structuring.
const (
	toolGetCurrentTime = "get_current_time"
	toolParseEvent     = "parse_event"
)

func toolDeclarations() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{
		{
			Name:        toolGetCurrentTime,
			Description: "取得現在的時間，用來解析如『明天』、『下週一』等模糊時間。回傳 ISO 格式時間字串。",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{},
			},
		},
		{
			Name:        toolParseEvent,
			Description: "解析事件資訊，結構化活動內容。回傳外層含有 type = \"Event\" 的結構化事件 JSON。",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title": {Type: genai.TypeString, Description: "活動標題"},
					"date":  {Type: genai.TypeString, Description: "活動日期（格式：YYYY-MM-DD）"},
					"time":  {Type: genai.TypeString, Description: "活動時間（格式：HH:mm）"},
					"note":  {Type: genai.TypeString, Description: "備註（可省略）"},
				},
				Required: []string{"title", "date", "time"},
			},
		},
	}
}

// callTool executes one tool call locally and returns its response payload.
func (r *GeminiRunner) callTool(name string, args map[string]any) map[string]any {
	switch name {
	case toolGetCurrentTime:
		return map[string]any{"time": r.clock.Now()}

	case toolParseEvent:
		return map[string]any{
			"type": "Event",
			"data": map[string]any{
				"title": stringArg(args, "title"),
				"date":  stringArg(args, "date"),
				"time":  stringArg(args, "time"),
				"note":  stringArg(args, "note"),
			},
		}

	default:
		return map[string]any{"error": fmt.Sprintf("unknown tool: %s", name)}
	}
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return ""
}
