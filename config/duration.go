package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration : time.Duration с поддержкой суффикса "d" (дни)
type Duration struct {
	time.Duration
}

func Days(n int) Duration {
	return Duration{time.Duration(n) * 24 * time.Hour}
}

// EnvDecode : разбор значения из переменной окружения
func (d *Duration) EnvDecode(ctx context.Context, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}

	if strings.HasSuffix(v, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(v, "d"))
		if err != nil {
			return fmt.Errorf("некорректное количество дней %q: %w", v, err)
		}
		d.Duration = time.Duration(days) * 24 * time.Hour
		return nil
	}

	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("некорректная длительность %q: %w", v, err)
	}
	d.Duration = parsed
	return nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	return d.EnvDecode(context.Background(), string(text))
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.EnvDecode(context.Background(), value.Value)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func (d Duration) String() string {
	return d.Duration.String()
}
