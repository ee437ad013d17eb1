package validation

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/areamap/backend/pkg/logger"
)

var xssPattern = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)

type Config struct {
	MaxSeedLength       int
	MaxRecords          int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware checks request bodies for the seed and table routes before they
// reach the store. It does not coerce values; the table route stays lenient
// about cell contents.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxSeedLength == 0 {
		cfg.MaxSeedLength = 32
	}
	if cfg.MaxRecords == 0 {
		cfg.MaxRecords = 10000
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{fiber.MIMEApplicationJSON}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Log
	}

	return func(c *fiber.Ctx) error {
		method := c.Method()
		if method != fiber.MethodPost && method != fiber.MethodPut {
			return c.Next()
		}

		contentType := c.Get(fiber.HeaderContentType)
		if contentType != "" && !allowedType(contentType, cfg.AllowedContentTypes) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": "Unsupported content type",
			})
		}

		path := c.Path()
		switch {
		case strings.HasSuffix(path, "/embedding/seed"):
			return validateSeed(c, cfg)
		case strings.HasSuffix(path, "/embedding/table"):
			return validateTable(c, cfg)
		}
		return c.Next()
	}
}

func validateSeed(c *fiber.Ctx, cfg Config) error {
	var req map[string]json.RawMessage
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}
	raw, ok := req["seed"]
	if !ok {
		return c.Next()
	}

	var seed any
	if err := json.Unmarshal(raw, &seed); err != nil {
		return badRequest(c, "Invalid JSON format")
	}
	switch v := seed.(type) {
	case nil, float64:
	case string:
		if len(v) > cfg.MaxSeedLength {
			return badRequest(c, "Seed exceeds maximum length")
		}
		if strings.ContainsRune(v, 0) {
			return badRequest(c, "Seed contains invalid characters")
		}
	default:
		return badRequest(c, "Seed must be a string or a number")
	}
	return c.Next()
}

func validateTable(c *fiber.Ctx, cfg Config) error {
	var req struct {
		Records json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}
	if len(req.Records) == 0 || string(req.Records) == "null" {
		return badRequest(c, "records is required and must be an array")
	}

	var records []map[string]any
	if err := json.Unmarshal(req.Records, &records); err != nil {
		return badRequest(c, "records must be an array of objects")
	}
	if len(records) > cfg.MaxRecords {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": "Too many records",
		})
	}

	for _, rec := range records {
		for col, val := range rec {
			s, ok := val.(string)
			if !ok {
				continue
			}
			if containsXSS(s) {
				cfg.Logger.Warn("Potential XSS attempt",
					zap.String("ip", c.IP()),
					zap.String("column", col),
				)
				return badRequest(c, "Invalid cell content")
			}
		}
	}
	return c.Next()
}

func allowedType(contentType string, allowed []string) bool {
	for _, t := range allowed {
		if strings.Contains(contentType, t) {
			return true
		}
	}
	return false
}

func containsXSS(input string) bool {
	return xssPattern.MatchString(input)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}
