package gameserver

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/cory-johannsen/arena/internal/arena"
)

// Client is a typed ArenaService client. The zero token makes only public
// calls succeed; use WithToken after Login.
type Client struct {
	cc    grpc.ClientConnInterface
	token string
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// WithToken returns a copy of c that authenticates as the holder of token.
func (c *Client) WithToken(token string) *Client {
	return &Client{cc: c.cc, token: token}
}

func (c *Client) ctx(ctx context.Context) context.Context {
	if c.token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
}

func invoke[Resp any](c *Client, ctx context.Context, method string, in any) (*Resp, error) {
	out := new(Resp)
	if err := c.cc.Invoke(c.ctx(ctx), fullMethod(method), in, out, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Register(ctx context.Context, in *Credentials) (*AccountReply, error) {
	return invoke[AccountReply](c, ctx, "Register", in)
}

func (c *Client) Login(ctx context.Context, in *Credentials) (*LoginReply, error) {
	return invoke[LoginReply](c, ctx, "Login", in)
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := invoke[Empty](c, ctx, "Logout", &Empty{})
	return err
}

func (c *Client) ListHeroes(ctx context.Context) (*HeroList, error) {
	return invoke[HeroList](c, ctx, "ListHeroes", &Empty{})
}

func (c *Client) ListEncounters(ctx context.Context) (*EncounterList, error) {
	return invoke[EncounterList](c, ctx, "ListEncounters", &Empty{})
}

func (c *Client) Leaderboard(ctx context.Context, in *ListRequest) (*LeaderboardReply, error) {
	return invoke[LeaderboardReply](c, ctx, "Leaderboard", in)
}

func (c *Client) History(ctx context.Context, in *ListRequest) (*HistoryReply, error) {
	return invoke[HistoryReply](c, ctx, "History", in)
}

func (c *Client) StartBattle(ctx context.Context, in *StartBattleRequest) (*arena.BattleView, error) {
	return invoke[arena.BattleView](c, ctx, "StartBattle", in)
}

func (c *Client) GetBattle(ctx context.Context, in *BattleRequest) (*arena.BattleView, error) {
	return invoke[arena.BattleView](c, ctx, "GetBattle", in)
}

func (c *Client) Act(ctx context.Context, in *ActRequest) (*arena.BattleView, error) {
	return invoke[arena.BattleView](c, ctx, "Act", in)
}

func (c *Client) BattleLog(ctx context.Context, in *LogRequest) (*LogReply, error) {
	return invoke[LogReply](c, ctx, "BattleLog", in)
}

func (c *Client) EndBattle(ctx context.Context, in *BattleRequest) error {
	_, err := invoke[Empty](c, ctx, "EndBattle", in)
	return err
}

// WatchClient receives the frames of one Watch call.
type WatchClient struct {
	stream grpc.ClientStream
}

// Recv returns the next frame, or io.EOF after the outcome.
func (w *WatchClient) Recv() (*WatchEvent, error) {
	e := new(WatchEvent)
	if err := w.stream.RecvMsg(e); err != nil {
		return nil, err
	}
	return e, nil
}

func (c *Client) Watch(ctx context.Context, in *BattleRequest) (*WatchClient, error) {
	stream, err := c.cc.NewStream(c.ctx(ctx), &ArenaServiceDesc.Streams[0], fullMethod("Watch"),
		grpc.CallContentSubtype(codecName))
	if err != nil {
		return nil, err
	}
	// io.EOF means the server already ended the call; Recv reports why.
	if err := stream.SendMsg(in); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &WatchClient{stream: stream}, nil
}
