package packinit

import (
	"time"

	"github.com/cfoust/assetpacks/pkg/assetpack"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const PROGRESS_LOG_INTERVAL = 2 * time.Second

// backgroundObserver watches downloads that initialization does not wait
// for. It only logs.
type backgroundObserver struct {
	log      zerolog.Logger
	progress *rate.Limiter
}

func newBackgroundObserver(log zerolog.Logger) *backgroundObserver {
	return &backgroundObserver{
		log:      log,
		progress: rate.NewLimiter(rate.Every(PROGRESS_LOG_INTERVAL), 1),
	}
}

func (o *backgroundObserver) Observe(event assetpack.StatusEvent) {
	switch event.Status {
	case assetpack.StatusCompleted:
		o.log.Info().Str("pack", event.Pack).Msg("background asset pack downloaded")
	case assetpack.StatusFailed:
		o.log.Warn().Err(event.Err).Str("pack", event.Pack).Msg("background asset pack download failed")
	case assetpack.StatusUnknown, assetpack.StatusCanceled:
		o.log.Warn().
			Str("pack", event.Pack).
			Str("status", event.Status.String()).
			Msg("background asset pack download did not finish")
	case assetpack.StatusWaitingForNetwork:
		o.log.Warn().Str("pack", event.Pack).Msg("background asset pack is waiting for a network connection")
	default:
		if !o.progress.Allow() {
			return
		}
		o.log.Debug().
			Str("pack", event.Pack).
			Str("status", event.Status.String()).
			Float64("progress", event.Progress()).
			Msg("background asset pack progress")
	}
}
