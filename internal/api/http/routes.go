package httpapi

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/mesowest-smet/internal/smet"
	"github.com/i474232898/mesowest-smet/internal/store"
)

var validate = validator.New()

// Service is the subset of smet.Service the routes use.
type Service interface {
	Run(ctx context.Context, req smet.RunRequest) (smet.RunResult, error)
	GetLatest(stationID string) (smet.RunResult, error)
	GetRange(stationID string, from, to time.Time) ([]smet.RunResult, error)
	OutputPath(stationID string) string
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service Service, runTimeout time.Duration) {
	v1 := app.Group("/api/v1")

	v1.Post("/stations/:id/runs", func(c *fiber.Ctx) error {
		var body runRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		body.StationID = c.Params("id")

		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), runTimeout)
		defer cancel()

		result, err := service.Run(ctx, body.toRunRequest())
		if err != nil {
			var fe *smet.FetchError
			var mf *smet.MissingFieldError
			switch {
			case errors.As(err, &fe):
				return fiber.NewError(fiber.StatusBadGateway, err.Error())
			case errors.As(err, &mf):
				return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
			default:
				return fiber.NewError(fiber.StatusInternalServerError, "failed to build smet file")
			}
		}
		return c.Status(fiber.StatusCreated).JSON(result)
	})

	v1.Get("/stations/:id/runs/latest", func(c *fiber.Ctx) error {
		run, err := service.GetLatest(c.Params("id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no runs recorded for station")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load run")
		}
		return c.JSON(run)
	})

	v1.Get("/stations/:id/runs", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		runs, err := service.GetRange(req.StationID, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no runs for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load run history")
		}

		return c.JSON(fiber.Map{
			"station": req.StationID,
			"from":    req.From,
			"to":      req.To,
			"runs":    runs,
		})
	})

	v1.Get("/stations/:id/smet", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := validate.Var(id, "required,alphanum"); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid station id")
		}
		path := service.OutputPath(id)
		if _, err := os.Stat(path); err != nil {
			return fiber.NewError(fiber.StatusNotFound, "no smet file for station")
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.SendFile(path)
	})
}

// runRequest is the optional JSON body of a run trigger.
type runRequest struct {
	StationID string `json:"-" validate:"required,alphanum"`
	Start     string `json:"start" validate:"omitempty,numeric,len=12|len=14"`
	End       string `json:"end" validate:"omitempty,numeric,len=12|len=14"`
	Forecast  bool   `json:"forecast"`
	Plot      bool   `json:"plot"`
}

func (r runRequest) toRunRequest() smet.RunRequest {
	return smet.RunRequest{
		StationID: r.StationID,
		Start:     r.Start,
		End:       r.End,
		Forecast:  r.Forecast,
		Plot:      r.Plot,
	}
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	StationID string    `validate:"required,alphanum"`
	From      time.Time `validate:"required"`
	To        time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	h.StationID = c.Params("id")

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
