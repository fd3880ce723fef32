package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/FyliaCare/calibration-mvp-sub000/internal/repository"
)

// Scheduler runs the nightly cleanup of rows that are dead by their own
// timestamps: consumed or expired OTP codes and expired auth tokens.
// Expiry is checked at read time, so the purge is space reclamation,
// not a correctness mechanism.
type Scheduler struct {
	cron   *cron.Cron
	otps   *repository.OTPRepository
	tokens *repository.TokenRepository
	log    zerolog.Logger
}

func NewScheduler(otps *repository.OTPRepository, tokens *repository.TokenRepository, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		otps:   otps,
		tokens: tokens,
		log:    log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 3 * * *", s.purgeExpired); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for a running purge to finish, up to five seconds.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) purgeExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()

	otpCount, err := s.otps.PurgeExpired(ctx, now)
	if err != nil {
		s.log.Error().Err(err).Msg("otp purge failed")
	}

	tokenCount, err := s.tokens.PurgeExpired(ctx, now)
	if err != nil {
		s.log.Error().Err(err).Msg("token purge failed")
	}

	s.log.Info().
		Int64("otp_rows", otpCount).
		Int64("token_rows", tokenCount).
		Msg("expired rows purged")
}
