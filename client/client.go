package client

import (
	"github.com/nczempin/tinyhttpd/errors"
	"github.com/nczempin/tinyhttpd/protocol"
	"github.com/nczempin/tinyhttpd/rio"
	"github.com/nczempin/tinyhttpd/transport"
)

// HttpClient issues one HTTP/1.0 request per connection and reads the
// response until the server closes the connection.
type HttpClient struct {
	network string
	address string
	headers []protocol.Header
}

// NewHttpClient creates a client for a "tcp" or "unix" server address
func NewHttpClient(network, address string) *HttpClient {
	return &HttpClient{
		network: network,
		address: address,
		headers: []protocol.Header{{Key: "Host", Value: address}},
	}
}

// Get performs a GET request for uri
func (c *HttpClient) Get(uri string) (*protocol.Response, error) {
	return c.Do("GET", uri)
}

// Do sends a bodiless request with any method and parses the response
func (c *HttpClient) Do(method, uri string) (*protocol.Response, error) {
	raw, err := c.DoRaw(method, uri)
	if err != nil {
		return nil, err
	}
	return protocol.ParseResponse(raw)
}

// DoRaw sends a bodiless request and returns the unparsed response bytes
func (c *HttpClient) DoRaw(method, uri string) ([]byte, error) {
	if method == "" || uri == "" {
		return nil, errors.NewInvalidArgumentError("method and URI are required")
	}
	return c.Send(protocol.BuildRequest(method, uri, c.headers))
}

// Send writes a raw request and returns everything the server sends back
func (c *HttpClient) Send(request []byte) ([]byte, error) {
	t := transport.NewClientTransport()
	if err := t.Connect(c.network, c.address); err != nil {
		return nil, err
	}
	defer t.Close()

	if _, err := rio.WriteFull(t, request); err != nil {
		return nil, err
	}
	return t.ReadAll()
}
