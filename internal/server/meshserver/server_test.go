package meshserver

import (
	"context"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/server/config"
	"github.com/yndnr/meshbbs-go/internal/storage/memory"
	"github.com/yndnr/meshbbs-go/internal/transport"
	"github.com/yndnr/meshbbs-go/internal/transport/loopback"
)

type noWait struct{}

func (noWait) Wait(context.Context) error { return nil }

type trackedRepo struct {
	*memory.Store
	closed atomic.Bool
}

func (r *trackedRepo) Close() error {
	r.closed.Store(true)
	return r.Store.Close()
}

func testConfig(peers ...string) *config.ServerConfig {
	cfg := config.Default()
	cfg.Transport.Kind = config.TransportLoopback
	cfg.Storage.Engine = "memory"
	cfg.Sync.Peers = peers
	return cfg
}

func startServer(t *testing.T, hub *loopback.Hub, id domain.NodeID, cfg *config.ServerConfig) (*Server, *trackedRepo) {
	t.Helper()
	radio := hub.Join(domain.NodeInfo{ID: id, ShortName: "BBS" + string(id[len(id)-1:]), BatteryLevel: -1})
	repo := &trackedRepo{Store: memory.New()}
	s, err := New(cfg, Deps{Transport: radio, Repository: repo, Pacer: noWait{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s, repo
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func expectReply(t *testing.T, user *loopback.Node, contains string) string {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg := <-user.Inbound():
			if strings.Contains(msg.Text, contains) {
				return msg.Text
			}
		case <-timeout:
			t.Fatalf("no reply containing %q", contains)
			return ""
		}
	}
}

func TestServer_AnswersDirectMessages(t *testing.T) {
	hub := loopback.NewHub()
	cfg := testConfig()
	cfg.Node.Name = "Hilltop"
	startServer(t, hub, "!bb000001", cfg)
	user := hub.Join(domain.NodeInfo{ID: "!user0001", ShortName: "USR"})

	if err := user.SendText(context.Background(), "hello", "!bb000001"); err != nil {
		t.Fatal(err)
	}
	reply := expectReply(t, user, "Hilltop")
	if !strings.Contains(reply, "[B]BS") {
		t.Errorf("main menu missing BBS entry: %q", reply)
	}
}

func TestServer_ReplicatesToPeer(t *testing.T) {
	hub := loopback.NewHub()
	a, _ := startServer(t, hub, "!bb00000a", testConfig("!bb00000b"))
	_, repoB := startServer(t, hub, "!bb00000b", testConfig("!bb00000a"))
	user := hub.Join(domain.NodeInfo{ID: "!user0001", ShortName: "USR"})

	if err := user.SendText(context.Background(), "PB,,General,,Hello,,World", "!bb00000a"); err != nil {
		t.Fatal(err)
	}
	expectReply(t, user, "has been posted")

	waitFor(t, "bulletin on peer", func() bool {
		list, err := repoB.ListBulletins(context.Background(), "General")
		return err == nil && len(list) == 1
	})
	list, _ := repoB.ListBulletins(context.Background(), "General")
	if list[0].Subject != "Hello" || list[0].SenderShortName != "USR" {
		t.Errorf("replicated bulletin = %+v", list[0])
	}

	// b applied a peer write and must not echo it back to a
	for _, m := range hub.Log() {
		if m.From == "!bb00000b" && m.To == "!bb00000a" {
			t.Errorf("peer echoed %q", m.Text)
		}
	}
	if st := a.Status(); len(st.Peers) != 1 || st.Peers[0] != "!bb00000b" {
		t.Errorf("status peers = %v", st.Peers)
	}
}

func TestServer_Reload(t *testing.T) {
	hub := loopback.NewHub()
	s, _ := startServer(t, hub, "!bb000001", testConfig("!p1"))

	next := testConfig("!p2", "!p3")
	next.BBS.AllowedNodes = []string{"!ok"}
	s.Reload(next)

	if !s.Engine().IsPeer("!p2") || s.Engine().IsPeer("!p1") {
		t.Errorf("peers after reload = %v", s.Engine().Peers().List())
	}
	if s.Router().AllowList().Permits("!other") {
		t.Error("allow-list not replaced")
	}
	if st := s.Status(); st.AllowList != 1 || len(st.Peers) != 2 {
		t.Errorf("status = %+v", st)
	}
}

func TestServer_Lifecycle(t *testing.T) {
	hub := loopback.NewHub()
	radio := hub.Join(domain.NodeInfo{ID: "!bb000001"})
	repo := &trackedRepo{Store: memory.New()}
	s, err := New(testConfig(), Deps{Transport: radio, Repository: repo, Pacer: noWait{}})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx); err != ErrAlreadyStarted {
		t.Errorf("second Start() = %v, want ErrAlreadyStarted", err)
	}
	if !s.Status().Running {
		t.Error("Status().Running = false after Start")
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !repo.closed.Load() {
		t.Error("Stop did not close the repository")
	}
	if err := radio.SendText(ctx, "x", "!user"); err != loopback.ErrClosed {
		t.Errorf("transport still open: %v", err)
	}
	if err := s.Stop(stopCtx); err != nil {
		t.Errorf("second Stop() = %v", err)
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(testConfig(), Deps{}); err == nil {
		t.Error("New() without transport should fail")
	}
}

func TestLane(t *testing.T) {
	if got := Lane("!abc", 1); got != 0 {
		t.Errorf("Lane with one worker = %d", got)
	}
	for _, id := range []domain.NodeID{"!a", "!b", "!c", "!deadbeef"} {
		l := Lane(id, 4)
		if l < 0 || l >= 4 {
			t.Errorf("Lane(%s, 4) = %d out of range", id, l)
		}
		if Lane(id, 4) != l {
			t.Errorf("Lane(%s) not stable", id)
		}
	}
}

func TestOpenTransport(t *testing.T) {
	cfg := config.Default().Transport
	cfg.Kind = config.TransportLoopback
	tr, err := OpenTransport(&cfg, "Test", nil)
	if err != nil {
		t.Fatalf("OpenTransport() error = %v", err)
	}
	defer tr.Close()
	if tr.Self() != LoopbackSelf {
		t.Errorf("Self() = %s", tr.Self())
	}
	var _ transport.Transport = tr

	cfg.Kind = "serial"
	if _, err := OpenTransport(&cfg, "Test", nil); err == nil {
		t.Error("unknown kind should fail")
	}

	cfg.Kind = config.TransportWebsocket
	cfg.TLS.CAFile = filepath.Join(t.TempDir(), "missing-ca.pem")
	if _, err := OpenTransport(&cfg, "Test", nil); err == nil {
		t.Error("an unreadable bridge CA should fail")
	}
}
