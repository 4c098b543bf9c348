package stations

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chrissnell/gwstationd/pkg/config"
	"go.uber.org/zap"
)

// ValidateNetwork checks that a gateway device carries a hostname and port.
func ValidateNetwork(cfg config.DeviceData) error {
	if cfg.Hostname == "" || cfg.Port == "" {
		return fmt.Errorf("station [%s] must define hostname and port", cfg.Name)
	}
	return nil
}

// ValidateCloudAPI checks that a cloud device carries API credentials and a
// station identifier.
func ValidateCloudAPI(cfg config.DeviceData) error {
	if cfg.APIKey == "" || cfg.ApplicationKey == "" {
		return fmt.Errorf("station [%s] must define api_key and application_key", cfg.Name)
	}
	if cfg.MAC == "" && cfg.IMEI == "" {
		return fmt.Errorf("station [%s] must define a mac or imei", cfg.Name)
	}
	return nil
}

// RunWatchdog raises a stalled-data warning when the sink has not received
// a record for longer than silence.  It repeats the warning once per check
// interval until data resumes.
func RunWatchdog(ctx context.Context, wg *sync.WaitGroup, name string, sink RecordSink,
	silence time.Duration, logger *zap.SugaredLogger) {
	defer wg.Done()

	ticker := time.NewTicker(silence / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			last := sink.LastIngest()
			if last.IsZero() {
				continue
			}
			if gap := time.Since(last); gap > silence {
				logger.Warnf("station [%s] data stalled: no records for %v", name, gap.Round(time.Second))
			}
		}
	}
}
