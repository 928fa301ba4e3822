package api

import (
	"context"
	"strconv"
	"time"

	"github.com/CristiGvl/picoOmenCtl/internal/bios"
	"github.com/CristiGvl/picoOmenCtl/internal/ec"
	"github.com/CristiGvl/picoOmenCtl/internal/fan"
	"github.com/CristiGvl/picoOmenCtl/internal/platform"
	"github.com/gofiber/fiber/v2"
	"github.com/shirou/gopsutil/v3/host"
)

// resultStatus maps an operation result to an HTTP status.
// Degraded results are still a 200, the body carries the status.
func resultStatus(res ec.Result) int {
	if res.OK() {
		return fiber.StatusOK
	}
	return fiber.StatusUnprocessableEntity
}

func (s *Server) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), requestTimeout)
}

// Health check endpoint
func (s *Server) healthCheck(c *fiber.Ctx) error {
	resp := fiber.Map{
		"status":    "ok",
		"platform":  platform.GetOS(),
		"channel":   s.deps.Access.State(),
		"timestamp": time.Now().Unix(),
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	if info, err := host.InfoWithContext(ctx); err == nil {
		resp["host"] = fiber.Map{
			"hostname":       info.Hostname,
			"os":             info.OS,
			"platform":       info.Platform,
			"kernel_version": info.KernelVersion,
			"uptime_seconds": info.Uptime,
		}
	}

	return c.JSON(resp)
}

// Channel state endpoint
func (s *Server) getChannel(c *fiber.Ctx) error {
	resp := fiber.Map{"state": s.deps.Access.State()}
	if err := s.deps.Access.ProbeError(); err != nil {
		resp["privileged_error"] = err.Error()
	}
	return c.JSON(resp)
}

// Device profile endpoint
func (s *Server) getProfile(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"board":     s.deps.Board,
		"profile":   s.deps.Profile,
		"supported": s.deps.Profile != nil,
	})
}

// Temperature endpoint
func (s *Server) getTemps(c *fiber.Ctx) error {
	if s.deps.Temps == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "temperature monitoring not available"})
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	info, err := s.deps.Temps.GetInfo(ctx)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(info)
}

// Fan speed endpoint
func (s *Server) setFanSpeed(c *fiber.Ctx) error {
	var req struct {
		Speed *int `json:"speed_percent"`
	}
	if err := c.BodyParser(&req); err != nil || req.Speed == nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	res := s.deps.Fan.SetFanSpeed(ctx, *req.Speed)
	pct := fan.ClampPercent(*req.Speed)

	return c.Status(resultStatus(res)).JSON(fiber.Map{
		"status":        res.Status,
		"reason":        res.Reason,
		"speed_percent": pct,
		"target_rpm":    s.deps.Fan.TargetRPM(pct),
		"channel":       s.deps.Access.State(),
	})
}

// Fan reset endpoint
func (s *Server) resetFan(c *fiber.Ctx) error {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	res := s.deps.Fan.ResetToAuto(ctx)
	return c.Status(resultStatus(res)).JSON(res)
}

// Performance mode endpoint
func (s *Server) setPerformanceMode(c *fiber.Ctx) error {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	value := bios.ParsePerformanceMode(req.Mode).Value()
	if err := s.deps.Performance.SetPerformanceMode(ctx, req.Mode); err != nil {
		res := ec.Failed("%s=%s: %v", bios.SettingPerformanceMode, value, err)
		return c.Status(resultStatus(res)).JSON(res)
	}

	return c.JSON(fiber.Map{
		"status": ec.StatusApplied,
		"mode":   value,
	})
}

// Raw register read endpoint
func (s *Server) readRegister(c *fiber.Ctx) error {
	register, err := parseRegister(c.Params("register"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid register"})
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	value, res := s.deps.Access.Read(ctx, register)
	return c.Status(resultStatus(res)).JSON(fiber.Map{
		"register": register,
		"value":    value,
		"status":   res.Status,
		"reason":   res.Reason,
	})
}

// Raw register write endpoint
func (s *Server) writeRegister(c *fiber.Ctx) error {
	register, err := parseRegister(c.Params("register"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid register"})
	}

	var req struct {
		Value *int `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil || req.Value == nil || *req.Value < 0 || *req.Value > 0xFF {
		return c.Status(400).JSON(fiber.Map{"error": "value must be between 0 and 255"})
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	res := s.deps.Access.Write(ctx, register, byte(*req.Value))
	return c.Status(resultStatus(res)).JSON(res)
}

// parseRegister accepts decimal or 0x-prefixed hex within the 256 byte EC RAM
func parseRegister(raw string) (uint16, error) {
	v, err := strconv.ParseUint(raw, 0, 8)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
