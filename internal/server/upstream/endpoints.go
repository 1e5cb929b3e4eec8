package upstream

import "strings"

// Endpoints are the upstream URLs derived from the configured host.
type Endpoints struct {
	Draw   string
	Result string
	Chat   string
}

func NewEndpoints(host string) Endpoints {
	base := strings.TrimRight(strings.TrimSpace(host), "/")
	return Endpoints{
		Draw:   base + "/v1/draw/nano-banana",
		Result: base + "/v1/draw/result",
		Chat:   base + "/v1/chat/completions",
	}
}
