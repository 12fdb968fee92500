package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
)

// Client is a typed PlayerService client.
type Client struct {
	getStatus   *connect.Client[emptypb.Empty, Status]
	queueSet    *connect.Client[QueueSetRequest, Status]
	queuePush   *connect.Client[QueuePushRequest, Status]
	queueRemove *connect.Client[IndexRequest, Status]
	queueSkip   *connect.Client[WaitRequest, Status]
	queuePrev   *connect.Client[WaitRequest, Status]
	queueJump   *connect.Client[IndexRequest, Status]
	play        *connect.Client[emptypb.Empty, Status]
	pause       *connect.Client[emptypb.Empty, Status]
	stop        *connect.Client[emptypb.Empty, emptypb.Empty]
	seek        *connect.Client[SeekRequest, Status]
	setVolume   *connect.Client[VolumeRequest, Status]
	watch       *connect.Client[emptypb.Empty, Status]
}

// NewClient creates a client for the server at baseURL. A non-empty token is
// sent with every call.
func NewClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(NewTokenInterceptor(token)),
	}, opts...)

	return &Client{
		getStatus:   connect.NewClient[emptypb.Empty, Status](httpClient, baseURL+PlayerServiceGetStatusProcedure, opts...),
		queueSet:    connect.NewClient[QueueSetRequest, Status](httpClient, baseURL+PlayerServiceQueueSetProcedure, opts...),
		queuePush:   connect.NewClient[QueuePushRequest, Status](httpClient, baseURL+PlayerServiceQueuePushProcedure, opts...),
		queueRemove: connect.NewClient[IndexRequest, Status](httpClient, baseURL+PlayerServiceQueueRemoveProcedure, opts...),
		queueSkip:   connect.NewClient[WaitRequest, Status](httpClient, baseURL+PlayerServiceQueueSkipProcedure, opts...),
		queuePrev:   connect.NewClient[WaitRequest, Status](httpClient, baseURL+PlayerServiceQueuePrevProcedure, opts...),
		queueJump:   connect.NewClient[IndexRequest, Status](httpClient, baseURL+PlayerServiceQueueJumpProcedure, opts...),
		play:        connect.NewClient[emptypb.Empty, Status](httpClient, baseURL+PlayerServicePlayProcedure, opts...),
		pause:       connect.NewClient[emptypb.Empty, Status](httpClient, baseURL+PlayerServicePauseProcedure, opts...),
		stop:        connect.NewClient[emptypb.Empty, emptypb.Empty](httpClient, baseURL+PlayerServiceStopProcedure, opts...),
		seek:        connect.NewClient[SeekRequest, Status](httpClient, baseURL+PlayerServiceSeekProcedure, opts...),
		setVolume:   connect.NewClient[VolumeRequest, Status](httpClient, baseURL+PlayerServiceSetVolumeProcedure, opts...),
		watch:       connect.NewClient[emptypb.Empty, Status](httpClient, baseURL+PlayerServiceWatchProcedure, opts...),
	}
}

func unary[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], msg *Req) (*Res, error) {
	resp, err := c.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// GetStatus returns the current player state.
func (c *Client) GetStatus(ctx context.Context) (*Status, error) {
	return unary(ctx, c.getStatus, &emptypb.Empty{})
}

// QueueSet replaces the queue.
func (c *Client) QueueSet(ctx context.Context, req *QueueSetRequest) (*Status, error) {
	return unary(ctx, c.queueSet, req)
}

// QueuePush appends a track.
func (c *Client) QueuePush(ctx context.Context, req *QueuePushRequest) (*Status, error) {
	return unary(ctx, c.queuePush, req)
}

// QueueRemove removes the entry at index.
func (c *Client) QueueRemove(ctx context.Context, index int, wait bool) (*Status, error) {
	return unary(ctx, c.queueRemove, &IndexRequest{Index: index, Wait: wait})
}

// QueueSkip moves to the next entry.
func (c *Client) QueueSkip(ctx context.Context, wait bool) (*Status, error) {
	return unary(ctx, c.queueSkip, &WaitRequest{Wait: wait})
}

// QueuePrev moves to the previous entry.
func (c *Client) QueuePrev(ctx context.Context, wait bool) (*Status, error) {
	return unary(ctx, c.queuePrev, &WaitRequest{Wait: wait})
}

// QueueJump plays the entry at index.
func (c *Client) QueueJump(ctx context.Context, index int, wait bool) (*Status, error) {
	return unary(ctx, c.queueJump, &IndexRequest{Index: index, Wait: wait})
}

// Play requests playback.
func (c *Client) Play(ctx context.Context) (*Status, error) {
	return unary(ctx, c.play, &emptypb.Empty{})
}

// Pause requests the paused state.
func (c *Client) Pause(ctx context.Context) (*Status, error) {
	return unary(ctx, c.pause, &emptypb.Empty{})
}

// Stop clears the queue.
func (c *Client) Stop(ctx context.Context) error {
	_, err := unary(ctx, c.stop, &emptypb.Empty{})
	return err
}

// Seek requests a seek to seconds.
func (c *Client) Seek(ctx context.Context, seconds float64) (*Status, error) {
	return unary(ctx, c.seek, &SeekRequest{Seconds: seconds})
}

// SetVolume sets the output volume.
func (c *Client) SetVolume(ctx context.Context, volume float64) (*Status, error) {
	return unary(ctx, c.setVolume, &VolumeRequest{Volume: volume})
}

// Watch calls fn with every state the server streams until ctx is done,
// the stream ends, or fn returns an error.
func (c *Client) Watch(ctx context.Context, fn func(*Status) error) error {
	stream, err := c.watch.CallServerStream(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Receive() {
		if err := fn(stream.Msg()); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
