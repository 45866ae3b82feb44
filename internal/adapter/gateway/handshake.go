package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gatewayctl/internal/domain"
)

// authenticate drives the challenge-response handshake on an opened
// connection: wait for connect.challenge, send exactly one connect request,
// wait for the terminal response. ctx carries the handshake deadline; on any
// failure the caller closes the connection.
func (c *Client) authenticate(ctx context.Context, cn *conn) error {
	cn.setState(StateAwaitingChallenge)

	var nonce string
	select {
	case ch := <-cn.challenge:
		nonce = ch.Nonce
	case <-cn.done:
		return fmt.Errorf("handshake: %w", domain.ErrConnectionClosed)
	case <-ctx.Done():
		return fmt.Errorf("handshake: no challenge within %s: %w", c.handshakeTimeout, domain.ErrAuthFailed)
	}
	c.logger.Debug("received connect challenge", "nonce", nonce)

	cn.setState(StateAuthenticating)

	scopes := c.target.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	params, err := json.Marshal(connectParams{
		MinProtocol: c.minProtocol,
		MaxProtocol: c.maxProtocol,
		Client:      c.identity,
		Auth:        connectAuth{Token: c.target.Token},
		Role:        c.target.Role,
		Scopes:      scopes,
		Caps:        []string{},
	})
	if err != nil {
		return fmt.Errorf("handshake: marshal connect params: %w", err)
	}

	pc := cn.register("connect", c.handshakeTimeout)
	if err := cn.send(Frame{Type: FrameTypeRequest, ID: pc.id, Method: "connect", Params: params}); err != nil {
		cn.take(pc.id)
		return fmt.Errorf("handshake: %w", err)
	}

	select {
	case res := <-pc.done:
		if res.err != nil {
			var rpcErr *domain.RPCError
			if errors.As(res.err, &rpcErr) {
				return fmt.Errorf("%w: %s", domain.ErrAuthFailed, rpcErr.Message)
			}
			if errors.Is(res.err, domain.ErrCallTimeout) {
				return fmt.Errorf("handshake: no connect response within %s: %w", c.handshakeTimeout, domain.ErrAuthFailed)
			}
			return fmt.Errorf("handshake: %w", res.err)
		}
		cn.setState(StateAuthenticated)
		c.logger.Info("gateway connection authenticated",
			"target", c.target.Name,
			"client_id", c.identity.ID,
			"role", c.target.Role,
		)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("handshake: no connect response within %s: %w", c.handshakeTimeout, domain.ErrAuthFailed)
	}
}
