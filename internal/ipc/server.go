package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"

	"timeclock/internal/logging"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, ctrl Controller, logger *slog.Logger) (*Server, error) {
	if ctrl == nil {
		return nil, errors.New("ipc server requires a controller")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	srv := &service{ctrl: ctrl, logger: logger, ctx: serverCtx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually"))
	}
}

type service struct {
	ctrl   Controller
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Status(req StatusRequest, resp *StatusResponse) error {
	out, err := s.ctrl.Status(s.ctx, req)
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

func (s *service) Roster(req RosterRequest, resp *RosterResponse) error {
	out, err := s.ctrl.Roster(s.ctx, req)
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

func (s *service) Hours(req HoursRequest, resp *HoursResponse) error {
	req.WorkerID = strings.TrimSpace(req.WorkerID)
	out, err := s.ctrl.Hours(s.ctx, req)
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

func (s *service) Scan(req ScanRequest, resp *ScanResponse) error {
	if strings.TrimSpace(req.Code) == "" {
		return errors.New("scan code is required")
	}
	s.logger.Debug("scan injected via IPC")
	out, err := s.ctrl.Scan(s.ctx, req)
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

func (s *service) Select(req SelectRequest, resp *SelectResponse) error {
	req.WorkerID = strings.TrimSpace(req.WorkerID)
	if req.WorkerID == "" {
		return errors.New("worker id is required")
	}
	out, err := s.ctrl.Select(s.ctx, req)
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

func (s *service) Reload(req ReloadRequest, resp *ReloadResponse) error {
	out, err := s.ctrl.Reload(s.ctx, req)
	if err != nil {
		return err
	}
	*resp = out
	s.logger.Info("roster reloaded via IPC",
		logging.String(logging.FieldEventType, "ipc_reload"),
		logging.Int("workers", out.Workers),
		logging.String("source", out.Source))
	return nil
}

func (s *service) Sync(req SyncRequest, resp *SyncResponse) error {
	out, err := s.ctrl.Sync(s.ctx, req)
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	if req.Offset < 0 && req.Limit <= 0 {
		req.Limit = 50
	}
	out, err := s.ctrl.LogTail(s.ctx, req)
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

func (s *service) TestNotification(req TestNotificationRequest, resp *TestNotificationResponse) error {
	out, err := s.ctrl.TestNotification(s.ctx, req)
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

func (s *service) Shutdown(req ShutdownRequest, resp *ShutdownResponse) error {
	out, err := s.ctrl.Shutdown(s.ctx, req)
	if err != nil {
		return err
	}
	*resp = out
	s.logger.Info("shutdown requested via IPC", logging.String(logging.FieldEventType, "ipc_shutdown"))
	return nil
}
