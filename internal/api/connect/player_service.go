package connect

import (
	"context"
	"math"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/osa030/tapedeck/internal/app/notification"
	"github.com/osa030/tapedeck/internal/app/playback"
	"github.com/osa030/tapedeck/internal/domain/track"
)

// PlayerService implements the PlayerService RPC on top of the playback store.
type PlayerService struct {
	store         *playback.Store
	notifications *notification.Manager
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(store *playback.Store, notifications *notification.Manager) *PlayerService {
	return &PlayerService{
		store:         store,
		notifications: notifications,
	}
}

func (s *PlayerService) status() *Status {
	return StatusFromSnapshot(s.store.Snapshot(), s.notifications.SequenceNo())
}

func (s *PlayerService) respond() *connect.Response[Status] {
	return connect.NewResponse(s.status())
}

// settle waits for load when requested. Resolution failures are part of the
// returned status, so only cancellation is an error.
func (s *PlayerService) settle(ctx context.Context, load *playback.Load, wait bool) error {
	if !wait {
		return nil
	}
	if err := load.Wait(ctx); err != nil && ctx.Err() != nil {
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}
	return nil
}

// GetStatus returns the current player state.
func (s *PlayerService) GetStatus(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[Status], error) {
	return s.respond(), nil
}

// QueueSet replaces the queue.
func (s *PlayerService) QueueSet(
	ctx context.Context,
	req *connect.Request[QueueSetRequest],
) (*connect.Response[Status], error) {
	tracks := make([]track.Track, len(req.Msg.Tracks))
	for i, t := range req.Msg.Tracks {
		if t.ID == "" {
			return nil, connect.NewError(connect.CodeInvalidArgument, errors.Newf("track %d: id is required", i))
		}
		tracks[i] = t.ToTrack()
	}

	zlog.Debug().Msgf("rpc: queue set: tracks=%d start_at=%d", len(tracks), req.Msg.StartAt)
	if err := s.settle(ctx, s.store.QueueSet(tracks, req.Msg.StartAt), req.Msg.Wait); err != nil {
		return nil, err
	}
	return s.respond(), nil
}

// QueuePush appends a track.
func (s *PlayerService) QueuePush(
	ctx context.Context,
	req *connect.Request[QueuePushRequest],
) (*connect.Response[Status], error) {
	if req.Msg.Track.ID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("track id is required"))
	}

	zlog.Debug().Msgf("rpc: queue push: track=%s", req.Msg.Track.ID)
	if err := s.settle(ctx, s.store.QueuePush(req.Msg.Track.ToTrack()), req.Msg.Wait); err != nil {
		return nil, err
	}
	return s.respond(), nil
}

// QueueRemove removes the entry at the given index.
func (s *PlayerService) QueueRemove(
	ctx context.Context,
	req *connect.Request[IndexRequest],
) (*connect.Response[Status], error) {
	if err := s.settle(ctx, s.store.QueueRemove(req.Msg.Index), req.Msg.Wait); err != nil {
		return nil, err
	}
	return s.respond(), nil
}

// QueueSkip moves to the next entry.
func (s *PlayerService) QueueSkip(
	ctx context.Context,
	req *connect.Request[WaitRequest],
) (*connect.Response[Status], error) {
	if err := s.settle(ctx, s.store.QueueSkip(), req.Msg.Wait); err != nil {
		return nil, err
	}
	return s.respond(), nil
}

// QueuePrev moves to the previous entry.
func (s *PlayerService) QueuePrev(
	ctx context.Context,
	req *connect.Request[WaitRequest],
) (*connect.Response[Status], error) {
	if err := s.settle(ctx, s.store.QueuePrev(), req.Msg.Wait); err != nil {
		return nil, err
	}
	return s.respond(), nil
}

// QueueJump plays the entry at the given index.
func (s *PlayerService) QueueJump(
	ctx context.Context,
	req *connect.Request[IndexRequest],
) (*connect.Response[Status], error) {
	if err := s.settle(ctx, s.store.QueueJump(req.Msg.Index), req.Msg.Wait); err != nil {
		return nil, err
	}
	return s.respond(), nil
}

// Play requests playback.
func (s *PlayerService) Play(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[Status], error) {
	s.store.Play()
	return s.respond(), nil
}

// Pause requests the paused state.
func (s *PlayerService) Pause(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[Status], error) {
	s.store.Pause()
	return s.respond(), nil
}

// Stop clears the queue.
func (s *PlayerService) Stop(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[emptypb.Empty], error) {
	s.store.Stop()
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// Seek requests a seek.
func (s *PlayerService) Seek(
	ctx context.Context,
	req *connect.Request[SeekRequest],
) (*connect.Response[Status], error) {
	if math.IsNaN(req.Msg.Seconds) || math.IsInf(req.Msg.Seconds, 0) {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("seconds must be finite"))
	}
	s.store.Seek(req.Msg.Seconds)
	return s.respond(), nil
}

// SetVolume sets the output volume.
func (s *PlayerService) SetVolume(
	ctx context.Context,
	req *connect.Request[VolumeRequest],
) (*connect.Response[Status], error) {
	if math.IsNaN(req.Msg.Volume) {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("volume must be a number"))
	}
	s.store.SetVolume(req.Msg.Volume)
	return s.respond(), nil
}

// Watch streams the player state: the current state first, then one message
// per change. A slow watcher skips to the latest state.
func (s *PlayerService) Watch(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
	stream *connect.ServerStream[Status],
) error {
	// Subscribe before reading the initial state so no change is missed.
	sub := s.notifications.Subscribe()
	defer s.notifications.Unsubscribe(sub.ID())

	if err := stream.Send(s.status()); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-sub.Updates():
			if !ok {
				return nil
			}
			if err := stream.Send(StatusFromSnapshot(u.State, u.SequenceNo)); err != nil {
				return err
			}
		}
	}
}
