package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// SettingReader is the slice of the event store needed to find the key.
type SettingReader interface {
	ReadSetting(ctx context.Context, key string) (string, error)
}

// LoadAPIKey returns override when set, otherwise the value stored under
// settingKey. A missing or blank value yields ErrNoCredential.
func LoadAPIKey(ctx context.Context, settings SettingReader, settingKey, override string) (string, error) {
	if key := strings.TrimSpace(override); key != "" {
		return key, nil
	}
	if settings == nil {
		return "", ErrNoCredential
	}
	value, err := settings.ReadSetting(ctx, settingKey)
	if err != nil {
		return "", errors.Join(ErrNoCredential, fmt.Errorf("read %s: %w", settingKey, err))
	}
	if strings.TrimSpace(value) == "" {
		return "", ErrNoCredential
	}
	return strings.TrimSpace(value), nil
}
