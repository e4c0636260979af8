package transaction

import (
	"strings"

	"github.com/sipagent/core/sip"
)

// ClientKey identifies a client transaction by (branch, method) of the
// request it was created to send (spec.md §4.F "Matching.").
type ClientKey struct {
	Branch string
	Method sip.RequestMethod
}

// ServerKey identifies a server transaction by (branch, top-Via sent-by,
// method); CANCEL matches the key of the transaction it cancels, with
// method substituted for INVITE (spec.md §4.F).
type ServerKey struct {
	Branch string
	SentBy string
	Method sip.RequestMethod
}

func clientKeyForRequest(req *sip.Request) ClientKey {
	branch, _ := req.Headers().Via().Branch()
	return ClientKey{Branch: branch, Method: req.Method}
}

// clientKeyForResponse matches a response back to the client transaction
// that sent the request carrying the same top Via branch and CSeq method.
func clientKeyForResponse(res *sip.Response) ClientKey {
	branch, _ := res.Headers().Via().Branch()
	method := res.Headers().CSeq().Method
	return ClientKey{Branch: branch, Method: method}
}

func sentBy(via *sip.ViaHeader) string {
	if via.Port > 0 {
		return via.Host + ":" + itoa(via.Port)
	}
	return via.Host
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func serverKeyForRequest(req *sip.Request) ServerKey {
	via := req.Headers().Via()
	method := req.Method
	if method == sip.CANCEL {
		method = sip.INVITE
	}
	return ServerKey{Branch: branchOf(via), SentBy: sentBy(via), Method: method}
}

func branchOf(via *sip.ViaHeader) string {
	b, _ := via.Branch()
	return b
}

// hasMagicCookie reports whether the request's top Via branch carries the
// RFC 3261 magic cookie, distinguishing compliant peers from legacy ones
// that require tuple-based matching (spec.md §4.F).
func hasMagicCookie(req *sip.Request) bool {
	branch := branchOf(req.Headers().Via())
	return strings.HasPrefix(branch, sip.RFC3261BranchMagicCookie)
}
