package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Alia5/ds4dsu/internal/configpaths"
	"github.com/Alia5/ds4dsu/internal/log"
	"github.com/Alia5/ds4dsu/internal/server/api"
	"github.com/Alia5/ds4dsu/internal/server/api/auth"
	"github.com/Alia5/ds4dsu/internal/server/api/handler"
	srvdsu "github.com/Alia5/ds4dsu/internal/server/dsu"
	"github.com/Alia5/ds4dsu/internal/version"
)

const keyFileName = "ds4dsu.key.txt"

type Server struct {
	UDPServerConfig   srvdsu.ServerConfig `embed:"" prefix:"udp."`
	APIServerConfig   api.ServerConfig    `embed:"" prefix:"api."`
	ConnectionTimeout time.Duration       `help:"Feed API request timeout" default:"30s" env:"DS4DSU_CONNECTION_TIMEOUT"`
	KeyFile           string              `help:"Feed API password file (default <config dir>/ds4dsu.key.txt)" type:"path" env:"DS4DSU_KEY_FILE"`
}

// Run is called by Kong when the server command is executed.
func (s *Server) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.StartServer(ctx, logger, rawLogger)
}

func (s *Server) keyFilePath() (string, error) {
	if s.KeyFile != "" {
		return s.KeyFile, nil
	}
	dir, err := configpaths.DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, keyFileName), nil
}

// StartServer runs the DSU server and the feed API until ctx is done or the
// DSU socket fails.
func (s *Server) StartServer(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	s.APIServerConfig.ConnectionTimeout = s.ConnectionTimeout

	if s.APIServerConfig.Addr == "" {
		return errors.New("feed API address must be set (default 127.0.0.1:26761)")
	}

	keyFilePath, err := s.keyFilePath()
	if err != nil {
		return fmt.Errorf("failed to resolve key file path: %w", err)
	}
	pwd, created, err := auth.LoadOrCreateKeyFile(keyFilePath)
	if err != nil {
		return fmt.Errorf("failed to load API password: %w", err)
	}
	s.APIServerConfig.Password = pwd
	if created {
		logger.Info("Generated API server password", "path", keyFilePath)
		logger.Info("-------------------------------------")
		logger.Info("Your ds4dsu API server password is:")
		logger.Info("-------------------------------------")
		logger.Info(pwd)
		logger.Info("-------------------------------------")
		logger.Info("You can change this password at any time by editing the file")
	}

	logger.Info("Starting DSU server", "addr", s.UDPServerConfig.Addr, "slots", s.UDPServerConfig.Slots)
	dsuSrv := srvdsu.New(s.UDPServerConfig, logger, rawLogger)

	dsuErrCh := make(chan error, 1)
	go func() {
		dsuErrCh <- dsuSrv.ListenAndServe()
	}()

	select {
	case err := <-dsuErrCh:
		return err
	case <-dsuSrv.Ready():
	}

	apiSrv, err := api.New(dsuSrv, s.APIServerConfig.Addr, s.APIServerConfig, logger)
	if err != nil {
		_ = dsuSrv.Close()
		<-dsuErrCh
		return err
	}
	RegisterRoutes(apiSrv)

	if err := apiSrv.Start(); err != nil {
		logger.Error("failed to start API server", "error", err)
		_ = dsuSrv.Close()
		<-dsuErrCh
		return err
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
		apiSrv.Close()
		_ = dsuSrv.Close()
		<-dsuErrCh
		return nil
	case err := <-dsuErrCh:
		apiSrv.Close()
		return err
	}
}

// RegisterRoutes wires every feed API path to its handler.
func RegisterRoutes(apiSrv *api.Server) {
	dsuSrv := apiSrv.DSU()
	r := apiSrv.Router()
	r.Register("ping", handler.Ping(version.String()))
	r.Register("slots/list", handler.SlotsList(apiSrv))
	r.Register("slots/{slot}/attach", handler.SlotAttach(apiSrv))
	r.Register("slots/{slot}/detach", handler.SlotDetach(apiSrv))
	r.Register("clients/list", handler.ClientsList(dsuSrv))
	r.Register("stats", handler.Stats(dsuSrv))
	r.Register("formats/list", handler.FormatsList())
	r.RegisterStream("slots/{slot}/stream", api.FeedStreamHandler())
}
