package connect

import (
	"net/http"

	"connectrpc.com/connect"
)

// PlayerServiceName is the fully-qualified name of the player service.
const PlayerServiceName = "tapedeck.v1.PlayerService"

// Procedure paths of the player service.
const (
	PlayerServiceGetStatusProcedure   = "/" + PlayerServiceName + "/GetStatus"
	PlayerServiceQueueSetProcedure    = "/" + PlayerServiceName + "/QueueSet"
	PlayerServiceQueuePushProcedure   = "/" + PlayerServiceName + "/QueuePush"
	PlayerServiceQueueRemoveProcedure = "/" + PlayerServiceName + "/QueueRemove"
	PlayerServiceQueueSkipProcedure   = "/" + PlayerServiceName + "/QueueSkip"
	PlayerServiceQueuePrevProcedure   = "/" + PlayerServiceName + "/QueuePrev"
	PlayerServiceQueueJumpProcedure   = "/" + PlayerServiceName + "/QueueJump"
	PlayerServicePlayProcedure        = "/" + PlayerServiceName + "/Play"
	PlayerServicePauseProcedure       = "/" + PlayerServiceName + "/Pause"
	PlayerServiceStopProcedure        = "/" + PlayerServiceName + "/Stop"
	PlayerServiceSeekProcedure        = "/" + PlayerServiceName + "/Seek"
	PlayerServiceSetVolumeProcedure   = "/" + PlayerServiceName + "/SetVolume"
	PlayerServiceWatchProcedure       = "/" + PlayerServiceName + "/Watch"
)

// NewPlayerServiceHandler builds an HTTP handler serving svc. It returns the
// path to mount the handler on.
func NewPlayerServiceHandler(svc *PlayerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(PlayerServiceGetStatusProcedure, connect.NewUnaryHandler(PlayerServiceGetStatusProcedure, svc.GetStatus, opts...))
	mux.Handle(PlayerServiceQueueSetProcedure, connect.NewUnaryHandler(PlayerServiceQueueSetProcedure, svc.QueueSet, opts...))
	mux.Handle(PlayerServiceQueuePushProcedure, connect.NewUnaryHandler(PlayerServiceQueuePushProcedure, svc.QueuePush, opts...))
	mux.Handle(PlayerServiceQueueRemoveProcedure, connect.NewUnaryHandler(PlayerServiceQueueRemoveProcedure, svc.QueueRemove, opts...))
	mux.Handle(PlayerServiceQueueSkipProcedure, connect.NewUnaryHandler(PlayerServiceQueueSkipProcedure, svc.QueueSkip, opts...))
	mux.Handle(PlayerServiceQueuePrevProcedure, connect.NewUnaryHandler(PlayerServiceQueuePrevProcedure, svc.QueuePrev, opts...))
	mux.Handle(PlayerServiceQueueJumpProcedure, connect.NewUnaryHandler(PlayerServiceQueueJumpProcedure, svc.QueueJump, opts...))
	mux.Handle(PlayerServicePlayProcedure, connect.NewUnaryHandler(PlayerServicePlayProcedure, svc.Play, opts...))
	mux.Handle(PlayerServicePauseProcedure, connect.NewUnaryHandler(PlayerServicePauseProcedure, svc.Pause, opts...))
	mux.Handle(PlayerServiceStopProcedure, connect.NewUnaryHandler(PlayerServiceStopProcedure, svc.Stop, opts...))
	mux.Handle(PlayerServiceSeekProcedure, connect.NewUnaryHandler(PlayerServiceSeekProcedure, svc.Seek, opts...))
	mux.Handle(PlayerServiceSetVolumeProcedure, connect.NewUnaryHandler(PlayerServiceSetVolumeProcedure, svc.SetVolume, opts...))
	mux.Handle(PlayerServiceWatchProcedure, connect.NewServerStreamHandler(PlayerServiceWatchProcedure, svc.Watch, opts...))

	return "/" + PlayerServiceName + "/", mux
}
