package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log      Log      `yaml:"log"`
	Server   Server   `yaml:"server"`
	Gateway  Gateway  `yaml:"gateway"`
	OpenAI   OpenAI   `yaml:"openai"`
	Calendar Calendar `yaml:"calendar"`
	Campaign Campaign `yaml:"campaign"`
}

type OpenAI struct {
	// OpenAI-compatible base url
	BaseURL string `yaml:"base_url" example:"https://api.openai.com/v1" validate:"required"`
	// API token
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX" validate:"required"`
	// Chat completion model
	Model string `yaml:"model" example:"gpt-4o-mini" validate:"required"`
	// Timeout for a single completion call
	Timeout time.Duration `yaml:"timeout" example:"30s"`
}

type Gateway struct {
	// Base url of the WhatsApp HTTP gateway
	BaseURL string `yaml:"base_url" example:"http://localhost:3000" validate:"required"`
	// Gateway API token
	Token string `yaml:"token" example:"gw-abc123def456"`
	// Timeout for a single outbound send
	Timeout time.Duration `yaml:"timeout" example:"15s"`
}

type Server struct {
	// Listen address of the inbound webhook server
	Listen string `yaml:"listen" example:":8080"`
}

type Calendar struct {
	// Path to the meetings store file
	StorePath string `yaml:"store_path" example:"data/meetings.jsonl"`
	// Offerable times in priority order, "HH:MM"
	AvailableTimes []string `yaml:"available_times"`
}

type Campaign struct {
	// Path to the contacts file ({phone, name} entries)
	ContactsPath string `yaml:"contacts_path" example:"data/contacts.json"`
	// Opening message template, [NOME] is replaced with the contact name
	Message string `yaml:"message"`
	// Max parallel sends
	Concurrency int `yaml:"concurrency" example:"4"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load() (*Config, error) {
	var result Config

	data, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	result.ApplyDefaults()

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func (c *Config) ApplyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.OpenAI.Timeout == 0 {
		c.OpenAI.Timeout = 30 * time.Second
	}
	if c.Gateway.Timeout == 0 {
		c.Gateway.Timeout = 15 * time.Second
	}
	if c.Calendar.StorePath == "" {
		c.Calendar.StorePath = "data/meetings.jsonl"
	}
	if len(c.Calendar.AvailableTimes) == 0 {
		c.Calendar.AvailableTimes = []string{
			"10:00", "11:00", "12:00", "13:00", "14:00",
			"15:00", "16:00", "17:00", "18:00",
		}
	}
	if c.Campaign.ContactsPath == "" {
		c.Campaign.ContactsPath = "data/contacts.json"
	}
	if c.Campaign.Message == "" {
		c.Campaign.Message = "Olá, boa tarde! Poderia me confirmar se estou falando com o CEO? " +
			"Caso não, poderia me direcionar para ele, por favor? " +
			"Temos interesse em entender melhor como funciona a [NOME]."
	}
	if c.Campaign.Concurrency <= 0 {
		c.Campaign.Concurrency = 4
	}
}
