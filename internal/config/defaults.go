package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:              "info",
			MaxConcurrentMessages: 5,
			Timezone:              "Asia/Taipei",
		},
		Line: LineConfig{
			ChannelSecret:      "${LINE_CHANNEL_SECRET}",
			ChannelAccessToken: "${LINE_CHANNEL_ACCESS_TOKEN}",
			Port:               8080,
			WebhookPath:        "/callback",
		},
		Agent: AgentConfig{
			AppName:       "EventMind",
			Model:         "gemini-2.0-flash",
			APIKey:        "${GEMINI_API_KEY}",
			MaxToolRounds: 8,
		},
		Memory: MemoryConfig{
			Enabled: false,
			DBPath:  "~/.eventmind/exchanges.db",
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
		},
	}
}
