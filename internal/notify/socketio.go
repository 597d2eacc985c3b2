package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/qr3d/internal/ctxlog"
	"github.com/vk/qr3d/internal/pipeline"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Socket.IO event names.
const (
	ProgressEvent = "progress"
	FinishedEvent = "finished"
)

// ConnectTimeout bounds the initial Socket.IO handshake.
const ConnectTimeout = 15 * time.Second

// SocketIO emits every event to a Socket.IO server.
type SocketIO struct {
	emit  func(event string, payload any)
	close func()
}

// SocketIOOptions tune the connection.
type SocketIOOptions struct {
	Namespace          string
	InsecureSkipVerify bool
}

// DialSocketIO connects to rawURL and waits for the handshake. The URL path
// is used as the Socket.IO path.
func DialSocketIO(ctx context.Context, rawURL string, o SocketIOOptions) (*SocketIO, error) {
	logger := ctxlog.FromContext(ctx).With("reporter", "socketio", "url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("progress URL %q must be absolute", rawURL)
	}
	namespace := o.Namespace
	if namespace == "" {
		namespace = "/"
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("🔌 Progress channel connected", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})

	logger.Debug("Initiating connection...")
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(ConnectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", ConnectTimeout)
	}

	return &SocketIO{
		emit:  func(event string, payload any) { io.Emit(event, payload) },
		close: func() { io.Disconnect() },
	}, nil
}

// Report emits e as a "progress" event.
func (s *SocketIO) Report(_ context.Context, e pipeline.Event) {
	s.emit(ProgressEvent, e)
}

// Finished emits the outcome of a run as a "finished" event.
func (s *SocketIO) Finished(_ context.Context, res *pipeline.Result) {
	s.emit(FinishedEvent, Summarize(res))
}

// Close disconnects from the server.
func (s *SocketIO) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}
