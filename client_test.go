package tcloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsingsun/tcloud/internal/wctest"
	"github.com/tsingsun/tcloud/pkg/conf"
	"github.com/tsingsun/tcloud/pkg/tc3"
)

const (
	testSecretID  = "AKIDz8krbsJ5yKBZQpn74WFkmLPx3EXAMPLE"
	testSecretKey = "Gu5t9xGARNpq86cd98joQYCN3EXAMPLE"
)

// testClock pins signing to 2023-11-14T02:13:20Z.
func testClock() time.Time {
	return time.Unix(1700000000, 0)
}

type capturedRequest struct {
	Host        string
	ContentType string
	Action      string
	Body        string
}

// apiServer is a gateway double. It verifies every signature against the
// test credentials before dispatching on the action header.
type apiServer struct {
	*httptest.Server
	captured chan capturedRequest
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()
	s := &apiServer{captured: make(chan capturedRequest, 16)}
	verifier := tc3.NewVerifier(func(secretID string) (tc3.Credentials, error) {
		if secretID != testSecretID {
			return tc3.Credentials{}, tc3.ErrUnknownSecretID
		}
		return tc3.NewCredentials(testSecretID, testSecretKey), nil
	}, 5*time.Minute)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := verifier.Verify(r, testClock()); err != nil {
			fmt.Fprintf(w, `{"Response":{"Error":{"Code":"AuthFailure.SignatureFailure","Message":%q},"RequestId":"req-reject"}}`, err.Error())
			return
		}
		body, _ := io.ReadAll(r.Body)
		s.captured <- capturedRequest{
			Host:        r.Host,
			ContentType: r.Header.Get("Content-Type"),
			Action:      r.Header.Get("X-TC-Action"),
			Body:        string(body),
		}
		switch r.Header.Get("X-TC-Action") {
		case "DescribeInstances":
			fmt.Fprint(w, `{"Response":{"RequestId":"req-ok","TotalCount":1,"InstanceSet":[{"InstanceId":"ins-1"}]}}`)
		case "StaleAction":
			fmt.Fprint(w, `{"Response":{"Error":{"Code":"AuthFailure.SignatureExpire","Message":"signature expired"},"RequestId":"req-expire"}}`)
		case "BrokenAction":
			fmt.Fprint(w, `<html>bad gateway</html>`)
		default:
			fmt.Fprintf(w, `{"Response":{"RequestId":"req-echo","Action":%q}}`, r.Header.Get("X-TC-Action"))
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *apiServer) lastRequest(t *testing.T) capturedRequest {
	t.Helper()
	select {
	case cr := <-s.captured:
		return cr
	case <-time.After(time.Second):
		t.Fatal("no request captured")
		return capturedRequest{}
	}
}

func clientConfig(extra map[string]any) *conf.Configuration {
	data := map[string]any{
		"credentials": map[string]any{
			"secretId":  testSecretID,
			"secretKey": testSecretKey,
		},
		"api": map[string]any{
			"service": "cvm",
			"host":    "cvm.tencentcloudapi.com",
			"action":  "DescribeInstances",
			"version": "2017-03-12",
			"region":  "ap-guangzhou",
		},
	}
	for k, v := range extra {
		data[k] = v
	}
	return conf.NewFromStringMap(data)
}

func newTestClient(t *testing.T, srv *apiServer, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithEndpoint(srv.URL), WithClock(testClock)}, opts...)
	c, err := NewClient(clientConfig(nil), opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	t.Run("fromFile", func(t *testing.T) {
		c, err := NewClient(wctest.Configuration().Sub("client"))
		require.NoError(t, err)
		desc := c.Signer().Descriptor()
		assert.Equal(t, "cvm", desc.Service)
		assert.Equal(t, "cvm.tencentcloudapi.com", desc.Host)
		assert.Equal(t, "DescribeInstances", desc.Action)
		assert.Equal(t, 10*time.Second, c.hc.Timeout)
	})
	t.Run("envCredentials", func(t *testing.T) {
		t.Setenv(tc3.EnvSecretID, testSecretID)
		t.Setenv(tc3.EnvSecretKey, testSecretKey)
		cnf := clientConfig(map[string]any{"credentials": map[string]any{}})
		_, err := NewClient(cnf)
		require.NoError(t, err)
	})
	t.Run("noCredentials", func(t *testing.T) {
		t.Setenv(tc3.EnvSecretID, "")
		t.Setenv(tc3.EnvSecretKey, "")
		cnf := clientConfig(map[string]any{"credentials": map[string]any{}})
		_, err := NewClient(cnf)
		assert.ErrorIs(t, err, tc3.ErrNoCredentials)
	})
	t.Run("invalidAPI", func(t *testing.T) {
		cnf := clientConfig(map[string]any{"api": map[string]any{"service": "cvm"}})
		_, err := NewClient(cnf)
		assert.ErrorContains(t, err, "host")
	})
	t.Run("invalidProxy", func(t *testing.T) {
		cnf := clientConfig(map[string]any{"proxyUrl": "://nope"})
		_, err := NewClient(cnf)
		assert.ErrorContains(t, err, "proxyUrl")
	})
}

func TestClient_Do(t *testing.T) {
	srv := newAPIServer(t)
	c := newTestClient(t, srv)

	res, err := c.Do(context.Background(), map[string]any{"Limit": 10, "Offset": 0})
	require.NoError(t, err)
	assert.Equal(t, "req-ok", res.RequestID)

	var out struct {
		TotalCount  int
		InstanceSet []struct{ InstanceId string }
	}
	require.NoError(t, res.Decode(&out))
	assert.Equal(t, 1, out.TotalCount)
	require.Len(t, out.InstanceSet, 1)
	assert.Equal(t, "ins-1", out.InstanceSet[0].InstanceId)

	cr := srv.lastRequest(t)
	assert.Equal(t, "cvm.tencentcloudapi.com", cr.Host, "signed host must survive the endpoint override")
	assert.Equal(t, "application/json", cr.ContentType)
	assert.Equal(t, `{"Limit":10,"Offset":0}`, cr.Body)
}

func TestClient_DoAction(t *testing.T) {
	srv := newAPIServer(t)
	c := newTestClient(t, srv)

	res, err := c.DoAction(context.Background(), "DescribeRegions", nil)
	require.NoError(t, err)
	assert.Equal(t, "req-echo", res.RequestID)
	assert.Equal(t, "DescribeRegions", srv.lastRequest(t).Action)
	// the configured signer is untouched
	assert.Equal(t, "DescribeInstances", c.Signer().Descriptor().Action)
}

func TestClient_Do_FormContent(t *testing.T) {
	srv := newAPIServer(t)
	cnf := clientConfig(map[string]any{"api": map[string]any{
		"service":     "cvm",
		"host":        "cvm.tencentcloudapi.com",
		"action":      "RunInstances",
		"version":     "2017-03-12",
		"region":      "ap-guangzhou",
		"contentType": "form",
	}})
	c, err := NewClient(cnf, WithEndpoint(srv.URL), WithClock(testClock))
	require.NoError(t, err)

	res, err := c.Do(context.Background(), map[string]string{"InstanceId": "ins-123", "Name": "web server"})
	require.NoError(t, err)
	assert.Equal(t, "req-echo", res.RequestID)

	cr := srv.lastRequest(t)
	assert.Equal(t, "application/x-www-form-urlencoded", cr.ContentType)
	assert.Equal(t, "InstanceId=ins-123&Name=web+server", cr.Body, "transmitted bytes are the hashed bytes")
}

func TestClient_Do_ServerError(t *testing.T) {
	srv := newAPIServer(t)
	c := newTestClient(t, srv)

	t.Run("clockSkew", func(t *testing.T) {
		_, err := c.DoAction(context.Background(), "StaleAction", nil)
		require.Error(t, err)
		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, CodeSignatureExpire, apiErr.Code)
		assert.Equal(t, "req-expire", apiErr.RequestID)
		assert.Equal(t, http.StatusOK, apiErr.StatusCode)
		assert.True(t, IsClockSkew(err))
		assert.True(t, IsAuthFailure(err))
	})
	t.Run("rejectedSignature", func(t *testing.T) {
		skewed, err := NewClient(clientConfig(nil),
			WithEndpoint(srv.URL),
			WithClock(func() time.Time { return testClock().Add(20 * time.Minute) }),
		)
		require.NoError(t, err)
		_, err = skewed.Do(context.Background(), nil)
		require.Error(t, err)
		assert.True(t, IsAuthFailure(err))
		assert.False(t, IsClockSkew(err))
	})
	t.Run("malformedEnvelope", func(t *testing.T) {
		_, err := c.DoAction(context.Background(), "BrokenAction", nil)
		require.Error(t, err)
		assert.ErrorContains(t, err, "malformed response envelope")
		var apiErr *Error
		assert.False(t, errors.As(err, &apiErr))
	})
}

func TestClient_Do_ContextCanceled(t *testing.T) {
	srv := newAPIServer(t)
	c := newTestClient(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Do(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClientWithSigner(t *testing.T) {
	srv := newAPIServer(t)
	signer, err := tc3.New(
		tc3.NewCredentials(testSecretID, testSecretKey),
		tc3.Descriptor{
			Service: "cvm",
			Host:    "cvm.tencentcloudapi.com",
			Action:  "DescribeInstances",
			Version: "2017-03-12",
			Region:  "ap-guangzhou",
		},
	)
	require.NoError(t, err)

	c := NewClientWithSigner(signer, WithEndpoint(srv.URL), WithClock(testClock), WithHTTPClient(srv.Client()))
	res, err := c.Do(context.Background(), map[string]any{"Limit": 10, "Offset": 0})
	require.NoError(t, err)
	assert.Equal(t, "req-ok", res.RequestID)
}

func TestClient_KeyCache(t *testing.T) {
	srv := newAPIServer(t)
	cnf := clientConfig(map[string]any{"keyCache": map[string]any{"size": 64}})
	c, err := NewClient(cnf, WithEndpoint(srv.URL), WithClock(testClock))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		res, err := c.Do(context.Background(), map[string]any{"Limit": 10, "Offset": 0})
		require.NoError(t, err)
		assert.Equal(t, "req-ok", res.RequestID)
	}
}

func TestClient_Do_Concurrent(t *testing.T) {
	srv := newAPIServer(t)
	cnf := clientConfig(map[string]any{"keyCache": map[string]any{"size": 64}})
	c, err := NewClient(cnf, WithEndpoint(srv.URL), WithClock(testClock))
	require.NoError(t, err)

	call := func() error {
		for i := 0; i < 2; i++ {
			res, err := c.Do(context.Background(), map[string]any{"Limit": 10, "Offset": 0})
			if err != nil {
				return err
			}
			if res.RequestID != "req-ok" {
				return fmt.Errorf("unexpected request id %q", res.RequestID)
			}
		}
		return nil
	}
	fns := make([]func() error, 6)
	for i := range fns {
		fns[i] = call
	}
	require.NoError(t, wctest.RunWait(t, time.Second, fns...))
	// every call went through signing and server side verification
	for i := 0; i < 12; i++ {
		srv.lastRequest(t)
	}
}
