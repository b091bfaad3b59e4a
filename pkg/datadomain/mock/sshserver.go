package mock

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"net"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// SSHServer exposes an appliance's command interpreter over SSH. Every
// command is attributed to the host name the server was created for.
type SSHServer struct {
	appliance *Appliance
	host      string
	config    *ssh.ServerConfig
	signer    ssh.Signer

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// NewSSHServer returns a server with a fresh ed25519 host key that accepts
// the appliance account by password and keyboard-interactive login.
func (a *Appliance) NewSSHServer(host string) (*SSHServer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "mock: generate host key")
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return nil, errors.Wrap(err, "mock: host key signer")
	}
	s := &SSHServer{appliance: a, host: host, signer: signer, conns: make(map[net.Conn]struct{})}
	s.config = &ssh.ServerConfig{
		PasswordCallback: func(meta ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			return nil, s.check(meta.User(), string(password))
		},
		KeyboardInteractiveCallback: func(meta ssh.ConnMetadata, challenge ssh.KeyboardInteractiveChallenge) (*ssh.Permissions, error) {
			answers, err := challenge(meta.User(), "", []string{"Password: "}, []bool{false})
			if err != nil {
				return nil, err
			}
			if len(answers) != 1 {
				return nil, errors.New("mock: expected one answer")
			}
			return nil, s.check(meta.User(), answers[0])
		},
	}
	s.config.AddHostKey(signer)
	return s, nil
}

func (s *SSHServer) check(user, password string) error {
	cfg := s.appliance.cfg
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(cfg.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(cfg.Password)) == 1
	if userOK && passOK {
		return nil
	}
	return errors.New("mock: permission denied")
}

// PublicKey is the server's host key.
func (s *SSHServer) PublicKey() ssh.PublicKey {
	return s.signer.PublicKey()
}

// Start listens on addr and serves in the background. It returns the bound
// address, which differs from addr when addr uses port 0.
func (s *SSHServer) Start(addr string) (net.Addr, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "mock: listen %s", addr)
	}
	s.mu.Lock()
	s.listener = l
	s.wg.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.wg.Done()
		_ = s.Serve(l)
	}()
	return l.Addr(), nil
}

// Serve accepts connections on l until it is closed.
func (s *SSHServer) Serve(l net.Listener) error {
	for {
		nc, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return errors.Wrap(err, "mock: accept")
		}
		if !s.track(nc) {
			_ = nc.Close()
			return nil
		}
		go func() {
			defer s.wg.Done()
			defer s.untrack(nc)
			s.handleConn(nc)
		}()
	}
}

func (s *SSHServer) track(nc net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[nc] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *SSHServer) untrack(nc net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, nc)
}

// Close stops the listener started by Start, drops every client connection
// and waits for their handlers to return.
func (s *SSHServer) Close() error {
	s.mu.Lock()
	s.closed = true
	l := s.listener
	for nc := range s.conns {
		_ = nc.Close()
	}
	s.mu.Unlock()
	var err error
	if l != nil {
		err = l.Close()
	}
	s.wg.Wait()
	return err
}

func (s *SSHServer) handleConn(nc net.Conn) {
	sconn, chans, reqs, err := ssh.NewServerConn(nc, s.config)
	if err != nil {
		_ = nc.Close()
		return
	}
	defer sconn.Close()
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "only session channels")
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(ch, chReqs)
	}
}

func (s *SSHServer) handleSession(ch ssh.Channel, reqs <-chan *ssh.Request) {
	defer ch.Close()
	for req := range reqs {
		if req.Type != "exec" {
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
			continue
		}
		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			_ = req.Reply(false, nil)
			return
		}
		_ = req.Reply(true, nil)

		res := s.appliance.Exec(s.host, payload.Command)
		_, _ = ch.Write(res.Stdout)
		_, _ = ch.Stderr().Write(res.Stderr)
		_ = ch.CloseWrite()
		status := struct{ Status uint32 }{uint32(res.ExitStatus)}
		_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(&status))
		return
	}
}
