package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-rover/internal/config"
	"github.com/teslashibe/go-rover/internal/httpc"
	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/camera"
	"github.com/teslashibe/go-rover/pkg/hub"
	"github.com/teslashibe/go-rover/pkg/robot"
	"github.com/teslashibe/go-rover/pkg/rover"
	"github.com/teslashibe/go-rover/pkg/snapshot"
	"github.com/teslashibe/go-rover/pkg/uplink"
	"github.com/teslashibe/go-rover/pkg/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Acquire the hardware and serve the control API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("🤖 Rover control service")
	fmt.Printf("   Rover:    %s (id %d)\n", cfg.Rover.Name, cfg.Rover.ID)
	fmt.Printf("   Hardware: %s %s\n", cfg.Hardware.Driver, cfg.Hardware.URL)
	fmt.Printf("   Mode:     %s\n", cfg.Rover.StartMode)
	fmt.Println()

	// Nothing else may drive the motors, so failing to acquire them is fatal.
	hw, err := robot.Open(ctx, robot.Options{Driver: cfg.Hardware.Driver, URL: cfg.Hardware.URL})
	if err != nil {
		return err
	}
	fmt.Println("✅ Hardware acquired")

	coord := newCoordinator(hw)
	h := hub.New(coord.Events(), cfg.Server.BroadcastInterval)

	opts := web.Options{
		Port:      cfg.Server.Port,
		StaticDir: cfg.Server.StaticDir,
		Debug:     debug,
	}
	if capturer, err := newCapturer(ctx, coord); err != nil {
		log.Warn("snapshots disabled", "error", err)
	} else {
		opts.Snapshots = capturer
	}
	server := web.NewServer(coord, h, opts)

	var fwd *uplink.Forwarder
	if cfg.Uplink.Kind != "" {
		fwd, err = newForwarder(ctx, coord)
		if err != nil {
			coord.Shutdown(cfg.Server.ShutdownTimeout)
			return err
		}
		coord.OnEvent(fwd.Enqueue)
		fmt.Printf("📡 Uplink: %s %s\n", cfg.Uplink.Kind, cfg.Uplink.URL)
	}

	coord.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	if fwd != nil {
		g.Go(func() error { return fwd.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		fmt.Println("\n👋 Shutting down...")
		return shutdown(server, coord)
	})

	fmt.Printf("🌐 Listening on http://localhost:%s\n", cfg.Server.Port)
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Println("👋 Goodbye!")
	return nil
}

// shutdown stops accepting commands first, then parks the rover.
func shutdown(server *web.Server, coord *rover.Coordinator) error {
	timeout := cfg.Server.ShutdownTimeout
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("web server: %w", err))
	}
	if err := coord.Shutdown(timeout); err != nil {
		errs = append(errs, fmt.Errorf("rover: %w", err))
	}
	return errors.Join(errs...)
}

func newCoordinator(hw robot.Hardware) *rover.Coordinator {
	mode, _ := rover.ParseMode(cfg.Rover.StartMode)
	d := cfg.Drive
	return rover.New(hw, hw, rover.Options{
		RoverID:           cfg.Rover.ID,
		RoverName:         cfg.Rover.Name,
		StartMode:         mode,
		EventCapacity:     cfg.Rover.EventCapacity,
		HeartbeatCapacity: cfg.Rover.HeartbeatCapacity,
		Settings: rover.Settings{
			SafeDistance:    d.SafeDistance,
			DangerDistance:  d.DangerDistance,
			MoveSpeed:       d.MoveSpeed,
			BackupSpeed:     d.BackupSpeed,
			TurnAngle:       d.TurnAngle,
			BackupSteps:     d.BackupSteps,
			DriveInterval:   d.Interval,
			BackupStepDelay: d.BackupStepDelay,
			StatusInterval:  d.StatusInterval,
		},
		Battery: rover.LinearDrain{Start: 100, PerSecond: cfg.Rover.BatteryDrainPerSecond},
		Logger:  log.Component("rover"),
	})
}

// newCapturer wires the camera to the configured image store.
func newCapturer(ctx context.Context, coord *rover.Coordinator) (*snapshot.Capturer, error) {
	camCfg := camera.DefaultConfig()
	camCfg.URL = cfg.Camera.FrameURL
	source, err := camera.New(camCfg)
	if err != nil {
		return nil, err
	}

	store, err := newStore(ctx, cfg.Snapshots)
	if err != nil {
		return nil, err
	}
	return snapshot.NewCapturer(source, store, coord, snapshot.Options{Keep: cfg.Snapshots.Keep}), nil
}

func newStore(ctx context.Context, sc config.Snapshots) (snapshot.Store, error) {
	switch sc.Backend {
	case "minio":
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		m := sc.Minio
		return snapshot.NewMinioStore(ctx, snapshot.MinioOptions{
			Endpoint:  m.Endpoint,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			Bucket:    m.Bucket,
			UseSSL:    m.UseSSL,
			Prefix:    m.Prefix,
		})
	default:
		return snapshot.NewFileStore(sc.Dir)
	}
}

func newForwarder(ctx context.Context, coord *rover.Coordinator) (*uplink.Forwarder, error) {
	u := cfg.Uplink
	pub, err := uplink.New(ctx, uplink.Config{
		Kind:     u.Kind,
		URL:      u.URL,
		Topic:    u.Topic,
		ClientID: u.ClientID,
		Username: u.Username,
		Password: u.Password,
		Timeout:  httpc.HardwareTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("uplink: %w", err)
	}
	return uplink.NewForwarder(pub, coord, cfg.Rover.ID, u.HeartbeatInterval), nil
}
