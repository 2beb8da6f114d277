package app

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/routepick/backend/internal/config"
	"github.com/routepick/backend/internal/pkg/bark"
	"github.com/routepick/backend/internal/pkg/nativelog"
	"go.uber.org/zap"
)

func applyRuntimeSettings(cfg *config.AppConfig) error {
	if os.Getenv(nativelog.EnvLogDir) == "" {
		_ = os.Setenv(nativelog.EnvLogDir, cfg.LogDir())
	}

	tz := strings.TrimSpace(cfg.Timezone)
	if tz == "" {
		return nil
	}
	loc, err := parseTimezoneLocation(tz)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	time.Local = loc
	return nil
}

func parseTimezoneLocation(tz string) (*time.Location, error) {
	if strings.EqualFold(tz, "UTC") || tz == "Z" {
		return time.UTC, nil
	}
	if loc, err := time.LoadLocation(tz); err == nil {
		return loc, nil
	}
	if len(tz) == 6 && (tz[0] == '+' || tz[0] == '-') && tz[3] == ':' {
		h, errH := strconv.Atoi(tz[1:3])
		m, errM := strconv.Atoi(tz[4:6])
		if errH == nil && errM == nil && h <= 23 && m <= 59 {
			offset := h*3600 + m*60
			if tz[0] == '-' {
				offset = -offset
			}
			return time.FixedZone(tz, offset), nil
		}
	}
	return nil, fmt.Errorf("expect IANA zone (e.g. Asia/Seoul) or UTC offset (e.g. +09:00)")
}

// denyRegistration backs the admin application, which has no signup flow.
type denyRegistration struct{}

func (denyRegistration) ValidateRegistrationToken(context.Context, string, string) bool { return false }

func (denyRegistration) ConsumeRegistrationToken(context.Context, string) error { return nil }

func newAlerts(cfg *config.AppConfig, logger *zap.Logger) *bark.Service {
	return bark.New(bark.Config{
		Key:       cfg.Alert.BarkKey,
		ServerURL: cfg.Alert.BarkServer,
		Title:     cfg.Alert.Title,
		Throttle:  cfg.Alert.Throttle(),
	}, logger)
}

// lockAlert pushes a throttled notification for every newly locked IP.
func lockAlert(alerts *bark.Service, kind Kind) func(ip string, until time.Time) {
	return func(ip string, until time.Time) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			alerts.ThrottlePush(ctx, ip,
				"Repeated authentication failures",
				fmt.Sprintf("%s app locked IP %s until %s", kind, ip, until.Format(time.RFC3339)),
			)
		}()
	}
}
