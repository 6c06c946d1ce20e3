// Package gameserver exposes the arena as a gRPC service. Messages travel as
// JSON under the "json" content subtype; ArenaServiceDesc is written by hand
// in the shape protoc-gen-go-grpc would generate.
package gameserver

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cory-johannsen/arena/internal/arena"
	"github.com/cory-johannsen/arena/internal/game/catalog"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/storage"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "arena.v1.ArenaService"

// ArenaServer is the server API of ArenaService.
type ArenaServer interface {
	Register(context.Context, *Credentials) (*AccountReply, error)
	Login(context.Context, *Credentials) (*LoginReply, error)
	Logout(context.Context, *Empty) (*Empty, error)
	ListHeroes(context.Context, *Empty) (*HeroList, error)
	ListEncounters(context.Context, *Empty) (*EncounterList, error)
	Leaderboard(context.Context, *ListRequest) (*LeaderboardReply, error)
	History(context.Context, *ListRequest) (*HistoryReply, error)
	StartBattle(context.Context, *StartBattleRequest) (*arena.BattleView, error)
	GetBattle(context.Context, *BattleRequest) (*arena.BattleView, error)
	Act(context.Context, *ActRequest) (*arena.BattleView, error)
	BattleLog(context.Context, *LogRequest) (*LogReply, error)
	EndBattle(context.Context, *BattleRequest) (*Empty, error)
	Watch(*BattleRequest, WatchStream) error
}

// WatchStream is the server side of the Watch stream.
type WatchStream interface {
	Send(*WatchEvent) error
	Context() context.Context
}

type watchStream struct{ grpc.ServerStream }

func (w watchStream) Send(e *WatchEvent) error { return w.SendMsg(e) }

func unary[Req, Resp any](name string, call func(ArenaServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if ic == nil {
				return call(srv.(ArenaServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return ic(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(ArenaServer), ctx, req.(*Req))
			})
		},
	}
}

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

// ArenaServiceDesc describes ArenaService for grpc.Server.RegisterService.
var ArenaServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ArenaServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", ArenaServer.Register),
		unary("Login", ArenaServer.Login),
		unary("Logout", ArenaServer.Logout),
		unary("ListHeroes", ArenaServer.ListHeroes),
		unary("ListEncounters", ArenaServer.ListEncounters),
		unary("Leaderboard", ArenaServer.Leaderboard),
		unary("History", ArenaServer.History),
		unary("StartBattle", ArenaServer.StartBattle),
		unary("GetBattle", ArenaServer.GetBattle),
		unary("Act", ArenaServer.Act),
		unary("BattleLog", ArenaServer.BattleLog),
		unary("EndBattle", ArenaServer.EndBattle),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(BattleRequest)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(ArenaServer).Watch(in, watchStream{stream})
			},
		},
	},
	Metadata: "arena/v1/arena.proto",
}

// publicMethods may be called without a bearer token.
var publicMethods = map[string]bool{
	fullMethod("Register"):       true,
	fullMethod("Login"):          true,
	fullMethod("ListHeroes"):     true,
	fullMethod("ListEncounters"): true,
	fullMethod("Leaderboard"):    true,
}

// Service implements ArenaServer over an arena.Service.
type Service struct {
	arena  *arena.Service
	logger *zap.Logger
}

// NewService returns a Service.
//
// Precondition: svc and logger must be non-nil.
func NewService(svc *arena.Service, logger *zap.Logger) *Service {
	return &Service{arena: svc, logger: logger}
}

// toStatus maps service and simulator errors to gRPC status codes.
func (s *Service) toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, combat.ErrSessionNotFound),
		errors.Is(err, catalog.ErrHeroNotFound),
		errors.Is(err, catalog.ErrEncounterNotFound):
		code = codes.NotFound
	case errors.Is(err, arena.ErrNotOwner):
		code = codes.PermissionDenied
	case errors.Is(err, storage.ErrAccountExists):
		code = codes.AlreadyExists
	case errors.Is(err, storage.ErrAccountNotFound),
		errors.Is(err, storage.ErrInvalidCredentials):
		code = codes.Unauthenticated
		err = storage.ErrInvalidCredentials
	case errors.Is(err, combat.ErrOnCooldown),
		errors.Is(err, combat.ErrInsufficientMana),
		errors.Is(err, combat.ErrBattleOver),
		errors.Is(err, combat.ErrActorDefeated),
		errors.Is(err, arena.ErrRealtimeBattle):
		code = codes.FailedPrecondition
	case errors.Is(err, arena.ErrUnknownAction),
		errors.Is(err, arena.ErrTooManyTicks),
		errors.Is(err, arena.ErrInvalidUsername),
		errors.Is(err, arena.ErrInvalidPassword),
		errors.Is(err, combat.ErrNoTarget),
		errors.Is(err, combat.ErrInvalidTarget),
		errors.Is(err, combat.ErrUnknownParticipant),
		errors.Is(err, combat.ErrUnknownAbility):
		code = codes.InvalidArgument
	default:
		s.logger.Error("grpc call failed", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}

func limitOf(r *ListRequest) int {
	if r.Limit <= 0 || r.Limit > 100 {
		return 10
	}
	return r.Limit
}

func (s *Service) Register(ctx context.Context, in *Credentials) (*AccountReply, error) {
	acct, err := s.arena.Register(ctx, in.Username, in.Password)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &AccountReply{Username: acct.Username}, nil
}

func (s *Service) Login(ctx context.Context, in *Credentials) (*LoginReply, error) {
	acct, err := s.arena.Login(ctx, in.Username, in.Password)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &LoginReply{Username: acct.Username, Token: s.arena.Tokens().Issue(acct.Username)}, nil
}

func (s *Service) Logout(ctx context.Context, _ *Empty) (*Empty, error) {
	s.arena.Tokens().Revoke(tokenFrom(ctx))
	return &Empty{}, nil
}

func (s *Service) ListHeroes(context.Context, *Empty) (*HeroList, error) {
	return &HeroList{Heroes: arena.HeroViews(s.arena.Catalog())}, nil
}

func (s *Service) ListEncounters(context.Context, *Empty) (*EncounterList, error) {
	return &EncounterList{Encounters: arena.EncounterViews(s.arena.Catalog())}, nil
}

func (s *Service) Leaderboard(ctx context.Context, in *ListRequest) (*LeaderboardReply, error) {
	rows, err := s.arena.Leaderboard(ctx, limitOf(in))
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &LeaderboardReply{Standings: rows}, nil
}

func (s *Service) History(ctx context.Context, in *ListRequest) (*HistoryReply, error) {
	reports, err := s.arena.History(ctx, ownerFrom(ctx), limitOf(in))
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &HistoryReply{Reports: reports}, nil
}

func (s *Service) StartBattle(ctx context.Context, in *StartBattleRequest) (*arena.BattleView, error) {
	sess, err := s.arena.StartBattle(ownerFrom(ctx), in.Hero, in.Encounter, in.Realtime)
	if err != nil {
		return nil, s.toStatus(err)
	}
	v := arena.ViewOf(sess)
	return &v, nil
}

func (s *Service) battle(ctx context.Context, id string) (*combat.Session, error) {
	sess, err := s.arena.Battle(ownerFrom(ctx), id)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return sess, nil
}

func (s *Service) GetBattle(ctx context.Context, in *BattleRequest) (*arena.BattleView, error) {
	sess, err := s.battle(ctx, in.BattleID)
	if err != nil {
		return nil, err
	}
	v := arena.ViewOf(sess)
	return &v, nil
}

func (s *Service) Act(ctx context.Context, in *ActRequest) (*arena.BattleView, error) {
	sess, err := s.battle(ctx, in.BattleID)
	if err != nil {
		return nil, err
	}
	if err := arena.Apply(sess, in.Action); err != nil {
		return nil, s.toStatus(err)
	}
	v := arena.ViewOf(sess)
	return &v, nil
}

func (s *Service) BattleLog(ctx context.Context, in *LogRequest) (*LogReply, error) {
	sess, err := s.battle(ctx, in.BattleID)
	if err != nil {
		return nil, err
	}
	return &LogReply{Events: sess.EventsSince(in.Since)}, nil
}

func (s *Service) EndBattle(ctx context.Context, in *BattleRequest) (*Empty, error) {
	if err := s.arena.EndBattle(ownerFrom(ctx), in.BattleID); err != nil {
		return nil, s.toStatus(err)
	}
	return &Empty{}, nil
}

// Watch streams every update of a battle, then its outcome.
func (s *Service) Watch(in *BattleRequest, stream WatchStream) error {
	sess, err := s.battle(stream.Context(), in.BattleID)
	if err != nil {
		return err
	}
	updates, cancel := sess.Subscribe()
	defer cancel()
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				o, ended := sess.Outcome()
				if !ended {
					return status.Error(codes.Aborted, "subscription closed")
				}
				return stream.Send(&WatchEvent{Outcome: &o})
			}
			if err := stream.Send(&WatchEvent{Update: &u}); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return stream.Context().Err()
		}
	}
}
