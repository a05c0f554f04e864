package evaluator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"baduk/board"
	"baduk/txnstate"
)

func stateAfter(t *testing.T, size int, moves ...string) *txnstate.State {
	t.Helper()
	s := txnstate.NewState(size, txnstate.DefaultKomi, nil)
	for _, m := range moves {
		a, err := txnstate.ParseAction(size, m)
		require.NoError(t, err)
		require.NoError(t, s.Play(a))
	}
	return s
}

func TestRequestRoundTrip(t *testing.T) {
	s := stateAfter(t, 5, "C3", "D3", "B2")
	req := NewRequest(s)
	require.Equal(t, "W", req.Turn)
	require.Equal(t, -1, req.Ko)

	pos, turn, err := req.Position()
	require.NoError(t, err)
	require.Equal(t, board.White, turn)
	require.Equal(t, s.Position().Encode(), pos.Encode())
	require.Equal(t, 3, pos.Liberties(board.PointAt(5, 2, 2)))
}

func TestRequestCarriesFeaturePlanes(t *testing.T) {
	require.Nil(t, NewRequest(stateAfter(t, 5, "C3")).Planes, "no planes without feature data")

	s := txnstate.NewState(5, txnstate.DefaultKomi, txnstate.AuxSet{txnstate.NewLegality(), txnstate.NewFeatures()})
	c3 := board.PointAt(5, 2, 2)
	require.NoError(t, s.Play(txnstate.Place(c3)))

	req := NewRequest(s)
	require.Len(t, req.Planes, txnstate.FeatureLen(5))
	require.Equal(t, uint8(1), req.Planes[25+int(c3)], "Black's stone is the opponent plane for White")
	require.Zero(t, req.Planes[2*25+25+int(c3)], "and was not there a move ago")
	_, _, err := req.Position()
	require.NoError(t, err)

	req.Planes = req.Planes[:10]
	_, _, err = req.Position()
	require.ErrorIs(t, err, ErrBadRequest)
}

func TestRequestRejectsBadBoards(t *testing.T) {
	_, _, err := Request{Size: 3, Turn: "B", Board: "XO"}.Position()
	require.ErrorIs(t, err, ErrBadRequest)

	_, _, err = Request{Size: 2, Turn: "B", Board: "XOOX"}.Position()
	require.ErrorIs(t, err, ErrBadRequest, "no group may lack liberties")

	_, _, err = Request{Size: 3, Turn: "?", Board: "........."}.Position()
	require.ErrorIs(t, err, ErrBadRequest)
}

func TestUniformPriorsSumToOne(t *testing.T) {
	s := stateAfter(t, 5, "C3")
	resps, err := Uniform{}.Evaluate(context.Background(), []Request{NewRequest(s)})
	require.NoError(t, err)
	require.Len(t, resps, 1)

	priors := resps[0].Priors
	require.Len(t, priors, 26)
	sum := 0.0
	for _, p := range priors {
		sum += p
	}
	require.InDelta(t, 1, sum, 1e-9)
	require.Zero(t, priors[board.PointAt(5, 2, 2)], "occupied points get nothing")
	require.InDelta(t, -25+6.5, resps[0].Value, 1e-9, "a lone black stone owns the board")
}

func TestHeuristicPrefersCaptures(t *testing.T) {
	// White C3 is in atari; Black to play at C2 captures it.
	s := stateAfter(t, 7, "C4", "C3", "B3", "F6", "D3", "F5")
	require.Equal(t, board.Black, s.Turn())
	resps, err := Heuristic{}.Evaluate(context.Background(), []Request{NewRequest(s)})
	require.NoError(t, err)

	priors := resps[0].Priors
	capture := board.PointAt(7, 2, 1)
	quiet := board.PointAt(7, 5, 2)
	require.Greater(t, priors[capture], priors[quiet])
}

func TestHTTPRoundTrip(t *testing.T) {
	srv := httptest.NewServer(NewRouter(Heuristic{}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	batch := []Request{
		NewRequest(stateAfter(t, 9)),
		NewRequest(stateAfter(t, 9, "E5", "C3")),
	}
	got, err := client.Evaluate(context.Background(), batch)
	require.NoError(t, err)

	want, err := Heuristic{}.Evaluate(context.Background(), batch)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(NewRouter(Uniform{}))
	defer srv.Close()
	client := NewClient(srv.URL, time.Second)

	_, err := client.Evaluate(context.Background(), []Request{{Size: 3, Turn: "B", Board: "bad"}})
	require.ErrorContains(t, err, "400")

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

type failing struct{}

func (failing) Evaluate(context.Context, []Request) ([]Response, error) {
	return nil, errors.New("device lost")
}

func TestHTTPServerFailure(t *testing.T) {
	srv := httptest.NewServer(NewRouter(failing{}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Evaluate(context.Background(), []Request{NewRequest(stateAfter(t, 5))})
	require.ErrorContains(t, err, "500")
}
