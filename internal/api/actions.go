package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pixil98/go-geoquest/internal/game"
)

// Collect picks up an item.
func (c *Client) Collect(ctx context.Context, id game.ID) (*ActionResult, error) {
	return c.action(ctx, fmt.Sprintf("/gameobject/%s/collect", url.PathEscape(id.String())))
}

// Talk starts a conversation with an NPC.
func (c *Client) Talk(ctx context.Context, id game.ID) (*ActionResult, error) {
	return c.action(ctx, fmt.Sprintf("/gameobject/%s/talk", url.PathEscape(id.String())))
}

// UpdatePosition reports the player's new coordinates.
func (c *Client) UpdatePosition(ctx context.Context, id game.ID, ll game.LatLng) error {
	_, err := c.action(ctx, fmt.Sprintf("/gameobject/%s/update_position/%s,%s",
		url.PathEscape(id.String()), formatCoord(ll.Lat), formatCoord(ll.Lng)))
	return err
}

// JoinWorld moves the logged in user's player into a world.
func (c *Client) JoinWorld(ctx context.Context, world game.ID) (*ActionResult, error) {
	return c.action(ctx, fmt.Sprintf("/world/%s/player_join", url.PathEscape(world.String())))
}

type registration struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a new user. The request carries no credentials.
func (c *Client) Register(ctx context.Context, username, password string) error {
	const path = "/user/register"
	_, err := c.do(ctx, http.MethodPost, path, nil, registration{Username: username, Password: password}, false)
	return err
}

func (c *Client) action(ctx context.Context, path string) (*ActionResult, error) {
	body, err := c.do(ctx, http.MethodGet, path, nil, nil, true)
	if err != nil {
		return nil, err
	}

	res, err := parseAction(body)
	if err != nil {
		return nil, &ShapeError{Path: path, Reason: err.Error()}
	}
	return res, nil
}
