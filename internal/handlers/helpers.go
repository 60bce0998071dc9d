package handlers

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/skvortsovm/storefront/internal/events"
	"github.com/skvortsovm/storefront/internal/logging"
)

const publishTimeout = 5 * time.Second

// publishEvent mirrors a mutation onto the kafka stream. Failures are logged
// and swallowed so the HTTP response never depends on broker availability.
func publishEvent(c echo.Context, p events.Publisher, topic, key string, event map[string]interface{}) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, topic, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "topic", topic, "error", err)
	}
}
