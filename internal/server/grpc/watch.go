package grpc

import (
	"sync"

	"github.com/dmitrijs2005/famtree/internal/api"
	"github.com/dmitrijs2005/famtree/internal/common"
	"github.com/dmitrijs2005/famtree/internal/server/view"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// mailbox holds the latest undelivered snapshot. Older ones are overwritten,
// so a slow client skips intermediate states instead of stalling the loop.
type mailbox struct {
	mu      sync.Mutex
	pending *view.Snapshot
	signal  chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{signal: make(chan struct{}, 1)}
}

func (m *mailbox) put(s view.Snapshot) {
	m.mu.Lock()
	m.pending = &s
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *mailbox) take() (view.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return view.Snapshot{}, false
	}
	s := *m.pending
	m.pending = nil
	return s, true
}

// WatchView streams the caller's composed view until the client goes away
// or the token it was opened with is signed out.
func (s *GRPCServer) WatchView(_ *structpb.Struct, ss grpc.ServerStream) error {
	ctx := ss.Context()
	id := IdentityFrom(ctx)
	if id == nil {
		return toStatus(common.ErrNotAuthenticated)
	}
	tokenID, err := s.svc.Identity.TokenID(tokenFrom(ctx))
	if err != nil {
		return toStatus(err)
	}

	session, release, err := s.svc.Sessions.Open(ctx, tokenID, id)
	if err != nil {
		return toStatus(err)
	}
	defer release()
	// a SignOut between authentication and Open missed this session
	if _, err := s.svc.Identity.Authenticate(ctx, tokenFrom(ctx)); err != nil {
		return toStatus(err)
	}

	box := newMailbox()
	cancel, err := s.svc.Composer.Watch(ctx, session.Identities(), box.put)
	if err != nil {
		return toStatus(err)
	}
	defer cancel()

	s.logger.Debug(ctx, "view watch started", "uid", id.UID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-box.signal:
		}

		snapshot, ok := box.take()
		if !ok {
			continue
		}
		if snapshot.Identity == nil {
			s.logger.Debug(ctx, "view watch signed out", "uid", id.UID)
			return toStatus(common.ErrNotAuthenticated)
		}
		msg, err := api.ToStruct(snapshot)
		if err != nil {
			return toStatus(err)
		}
		if err := ss.SendMsg(msg); err != nil {
			return err
		}
	}
}
