package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// TemplateConfig is the starter config written by configgen.
func TemplateConfig() DispatchConfig {
	return DispatchConfig{
		ID:                 "wadispatch.local",
		Addr:               ":7071",
		AuthDir:            "session_auth_info",
		AuthRequiredFiles:  []string{"session.db"},
		ConnectTimeout:     "30s",
		SettleDelay:        "2s",
		DeliverTimeout:     "90s",
		AttachmentFileName: "consentimiento.pdf",
		AttachmentMimeType: "application/pdf",
		CorsOrigins:        []string{"http://localhost:3000"},
		SecurityMode:       "development",
	}
}

func Template() (string, error) {
	data, err := toml.Marshal(TemplateConfig())
	if err != nil {
		return "", fmt.Errorf("render config template: %w", err)
	}
	return string(data), nil
}

func WriteTemplate(path string, overwrite bool) error {
	template, err := Template()
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
