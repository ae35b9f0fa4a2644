package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/samber/lo"

	"github.com/teslashibe/go-rover/pkg/protocol"
	"github.com/teslashibe/go-rover/pkg/rover"
	"github.com/teslashibe/go-rover/pkg/snapshot"
)

// errNoSnapshots is returned when the server runs without a camera store.
var errNoSnapshots = errors.New("snapshots are not configured")

// handleSubmitHeartbeat stores a heartbeat and echoes it back.
func (s *Server) handleSubmitHeartbeat(c *fiber.Ctx) error {
	var req protocol.Heartbeat
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	hb, err := req.ToHeartbeat()
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(protocol.FromHeartbeat(s.rover.SubmitHeartbeat(hb)))
}

func (s *Server) handleLatestHeartbeat(c *fiber.Ctx) error {
	hb, err := s.rover.LatestHeartbeat()
	if errors.Is(err, rover.ErrNoHeartbeat) {
		return fiber.NewError(fiber.StatusNotFound, "No heartbeat data available")
	}
	if err != nil {
		return err
	}
	return c.JSON(protocol.FromHeartbeat(hb))
}

// handleSubmitEvent stores an event from another source and echoes it back.
func (s *Server) handleSubmitEvent(c *fiber.Ctx) error {
	var req protocol.RoverEvent
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	e, err := req.ToEvent()
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(protocol.FromEvent(s.rover.SubmitEvent(e)))
}

// handleControl accepts the direction either in the path or as a
// MovementCommand body.
func (s *Server) handleControl(c *fiber.Ctx) error {
	command := c.Params("command")
	if command == "" {
		var req protocol.MovementCommand
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		}
		command = req.Command
	}
	return c.JSON(protocol.SuccessResponse{Success: s.rover.Move(command)})
}

func (s *Server) handleCamera(c *fiber.Ctx) error {
	var req protocol.CameraCommand
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(protocol.SuccessResponse{Success: s.rover.Camera(req.Pan, req.Tilt)})
}

func (s *Server) handleMode(c *fiber.Ctx) error {
	var req protocol.ModeCommand
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(protocol.SuccessResponse{Success: s.rover.SetMode(c.UserContext(), req.Mode)})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(protocol.FromStatus(s.rover.Status()))
}

// handleEvents returns one newest-first page. A negative start is treated
// as zero.
func (s *Server) handleEvents(c *fiber.Ctx) error {
	start := max(0, c.QueryInt("start", 0))
	limit := c.QueryInt("limit", DefaultPageSize)
	return c.JSON(protocol.FromPage(s.rover.Page(start, limit)))
}

func (s *Server) handleTakeSnapshot(c *fiber.Ctx) error {
	if s.snaps == nil {
		return c.JSON(protocol.SnapshotFailure(errNoSnapshots))
	}
	info, err := s.snaps.Take(c.UserContext())
	if err != nil {
		return c.JSON(protocol.SnapshotFailure(err))
	}
	return c.JSON(protocol.NewSnapshotResult(info.Filename, info.Taken))
}

// handleListSnapshots always answers with a list; store failures are
// already recorded as events by the capturer.
func (s *Server) handleListSnapshots(c *fiber.Ctx) error {
	var infos []snapshot.Info
	if s.snaps != nil {
		infos, _ = s.snaps.List(c.UserContext())
	}
	return c.JSON(protocol.SnapshotList{
		Snapshots: lo.Map(infos, func(i snapshot.Info, _ int) protocol.SnapshotInfo {
			return protocol.NewSnapshotInfo(i.Filename, i.Taken)
		}),
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	st := s.rover.State()
	return c.JSON(protocol.HealthResponse{
		Status:  "ok",
		RoverID: st.RoverID,
		Mode:    string(st.Mode),
		Uptime:  s.rover.Uptime().Seconds(),
	})
}

// handleEventsWS streams the latest event until the observer disconnects.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	s.hub.Serve(c)
}
