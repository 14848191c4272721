package match

import (
	"net"

	"github.com/sigmarules/engine/pkg/types"
)

// CIDRMatcher backs the `cidr` modifier: the needle is a network in CIDR
// notation, the field value must parse as an IP literal contained in it.
type CIDRMatcher struct {
	Net *net.IPNet
}

// NewCIDRMatcher parses the rule-side needle once at compile time.
func NewCIDRMatcher(cidr string) (CIDRMatcher, error) {
	_, n, err := net.ParseCIDR(cidr)
	if err != nil {
		return CIDRMatcher{}, err
	}
	return CIDRMatcher{Net: n}, nil
}

// Match parses the candidate field value as an IP address; a value that
// doesn't parse as one never matches, regardless of network.
func (c CIDRMatcher) Match(v types.Value) bool {
	s, ok := v.AsString()
	if !ok {
		return false
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return false
	}
	return c.Net.Contains(ip)
}
