package api

import (
	"strconv"

	"github.com/example/callme-dispatch/modules/task"
	"github.com/gofiber/fiber/v2"
)

// bannerText is served on the root route.
const bannerText = "Please contact the administrator to get access to this service"

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	app.Get("/", m.banner)
	app.Get("/health", m.healthHandler)

	// Legacy agent routes
	app.Post("/addPhoneTask", m.throttled(m.addPhoneTask)...)
	app.Get("/getPhoneTask", m.getPhoneTask)
	app.Post("/finishPhoneTask", m.finishPhoneTask)

	// API v1 routes
	tasks := app.Group("/api/v1/tasks")
	tasks.Post("/enqueue", m.throttled(m.enqueueTask)...)
	tasks.Get("/claim", m.claimTask)
	tasks.Post("/complete", m.completeTask)
}

// throttled prepends the per-IP throttle to h when one is configured.
func (m *APIModule) throttled(h fiber.Handler) []fiber.Handler {
	if m.limiter == nil {
		return []fiber.Handler{h}
	}
	return []fiber.Handler{m.limiter.IPRateLimit(), h}
}

// banner handles GET /.
func (m *APIModule) banner(c *fiber.Ctx) error {
	return c.SendString(bannerText)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	details := map[string]any{
		"module": "api",
		"port":   m.port,
	}
	status := "healthy"

	stats, err := m.tasks.Stats(c.Context())
	if err != nil {
		status = "unhealthy"
		details["store_error"] = err.Error()
	} else {
		if !stats.Healthy {
			status = "unhealthy"
			details["store_error"] = stats.Error
		}
		details["driver"] = stats.Driver
		details["tasks"] = map[string]int64{
			"pending":     stats.Pending,
			"in_progress": stats.InProgress,
			"done":        stats.Done,
		}
	}

	if m.sweeps != nil {
		if last, err := m.sweeps.LastSweep(c.Context()); err != nil {
			details["sweeper_error"] = err.Error()
		} else {
			details["last_sweep"] = last
		}
	}

	code := fiber.StatusOK
	if status != "healthy" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(HealthResponse{
		Status:  status,
		Details: details,
	})
}

// enqueueTask handles POST /api/v1/tasks/enqueue.
func (m *APIModule) enqueueTask(c *fiber.Ctx) error {
	var req EnqueueRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(EnqueueResponse{
			Success: false,
			Message: "Invalid request body",
			Code:    "invalid_input",
		})
	}

	resp, err := m.tasks.Enqueue(c.Context(), &task.EnqueueRequest{
		SubmitterID: req.SubmitterID,
		Target:      req.Target,
		Content:     req.Content,
	})
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	code := fiber.StatusCreated
	if !resp.Success {
		code = statusForCode(resp.Code)
	}
	return c.Status(code).JSON(EnqueueResponse{
		Success: resp.Success,
		Message: resp.Message,
		Code:    resp.Code,
		TaskID:  resp.TaskID,
	})
}

// claimTask handles GET /api/v1/tasks/claim.
func (m *APIModule) claimTask(c *fiber.Ctx) error {
	resp, err := m.tasks.Claim(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	out := ClaimResponse{
		Success: resp.Success,
		Message: resp.Message,
		Code:    resp.Code,
	}
	if resp.Task != nil {
		out.Task = &TaskDTO{
			ID:          resp.Task.ID,
			SubmitterID: resp.Task.SubmitterID,
			Target:      resp.Task.Target,
			Content:     resp.Task.Content,
		}
	}

	code := fiber.StatusOK
	if !resp.Success {
		code = statusForCode(resp.Code)
	}
	return c.Status(code).JSON(out)
}

// completeTask handles POST /api/v1/tasks/complete.
func (m *APIModule) completeTask(c *fiber.Ctx) error {
	var req CompleteRequest
	if err := c.BodyParser(&req); err != nil || req.TaskID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(CompleteResponse{
			Success: false,
			Message: "task_id must be a positive integer",
			Code:    "invalid_input",
		})
	}

	resp, err := m.tasks.Complete(c.Context(), req.TaskID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	code := fiber.StatusOK
	if !resp.Success {
		code = statusForCode(resp.Code)
	}
	return c.Status(code).JSON(CompleteResponse{
		Success: resp.Success,
		Message: resp.Message,
		Code:    resp.Code,
	})
}

// addPhoneTask handles POST /addPhoneTask. Legacy routes always answer 200.
func (m *APIModule) addPhoneTask(c *fiber.Ctx) error {
	var req AddPhoneTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.JSON(AddPhoneTaskResponse{Success: false, Msg: "invalid parameters"})
	}

	resp, err := m.tasks.Enqueue(c.Context(), &task.EnqueueRequest{
		SubmitterID: req.UserID,
		Target:      req.PhoneNumber,
		Content:     req.NotificationContent,
	})
	if err != nil {
		m.logger.Error("Legacy enqueue failed", "error", err)
		return c.JSON(AddPhoneTaskResponse{Success: false, Msg: "failed to create notification task"})
	}

	out := AddPhoneTaskResponse{Success: resp.Success, Msg: resp.Message}
	if resp.Success {
		id := strconv.FormatInt(resp.TaskID, 10)
		out.TaskID = &id
	}
	return c.JSON(out)
}

// getPhoneTask handles GET /getPhoneTask.
func (m *APIModule) getPhoneTask(c *fiber.Ctx) error {
	resp, err := m.tasks.Claim(c.Context())
	if err != nil {
		m.logger.Error("Legacy claim failed", "error", err)
		return c.JSON(GetPhoneTaskResponse{Success: false, Msg: "failed to claim task"})
	}

	out := GetPhoneTaskResponse{Success: resp.Success, Msg: resp.Message}
	if resp.Task != nil {
		out.Task = &PhoneTask{
			ID:                  resp.Task.ID,
			UserID:              resp.Task.SubmitterID,
			PhoneNumber:         resp.Task.Target,
			NotificationContent: resp.Task.Content,
		}
	}
	return c.JSON(out)
}

// finishPhoneTask handles POST /finishPhoneTask.
func (m *APIModule) finishPhoneTask(c *fiber.Ctx) error {
	var req FinishPhoneTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.JSON(FinishPhoneTaskResponse{Success: false, Msg: "invalid parameters"})
	}

	resp, err := m.tasks.Complete(c.Context(), req.TaskID)
	if err != nil {
		m.logger.Error("Legacy complete failed", "task_id", req.TaskID, "error", err)
		return c.JSON(FinishPhoneTaskResponse{Success: false, Msg: "failed to update task status, please retry"})
	}
	return c.JSON(FinishPhoneTaskResponse{Success: resp.Success, Msg: resp.Message})
}

// statusForCode maps a service error code to an HTTP status.
func statusForCode(code string) int {
	switch code {
	case "invalid_input":
		return fiber.StatusBadRequest
	case "not_authorized":
		return fiber.StatusForbidden
	case "rate_limited":
		return fiber.StatusTooManyRequests
	case "no_pending_task", "not_found":
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}
