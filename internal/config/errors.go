package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/RoGogDBD/items/internal/retry"
	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"
)

const connectRetries = 3

// ConnectPolicy правила повторов при подключении к внешним зависимостям на старте.
func ConnectPolicy(what string) retry.Policy {
	return retry.Policy{
		MaxRetries:  connectRetries,
		Backoff:     retry.NewBackoff(time.Second, 5*time.Second, false),
		ShouldRetry: IsRetriableError,
		OnRetry: func(err error, attempt int, wait time.Duration) {
			log.WithError(err).
				WithField("target", what).
				Warnf("Retriable error (attempt %d/%d). Retrying in %v...", attempt, connectRetries+1, wait)
		},
	}
}

// WithConnectRetry выполняет op с повторами для временных сетевых ошибок.
func WithConnectRetry(ctx context.Context, what string, op func(ctx context.Context) error) error {
	if err := retry.Do(ctx, ConnectPolicy(what), op); err != nil {
		return fmt.Errorf("%s: operation failed after retries: %w", what, err)
	}
	return nil
}

// IsRetriableError сообщает, имеет ли смысл повторить операцию.
func IsRetriableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// класс 08: connection exception
		return len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08"
	}
	if pgconn.SafeToRetry(err) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
