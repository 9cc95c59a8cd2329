package ledger

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/ao20/internal/ir"
)

// fieldFrom names the caller address in rejections.
const fieldFrom = "From"

// addressTags are the request tags that carry ledger addresses.
var addressTags = []string{TagRecipient, TagSender, TagSpender, TagTarget, TagNewOwner}

// Balances and allowances are keyed by the raw address, while canonical JSON
// writes keys in NFC. Only NFC addresses are accepted so the two never
// disagree.
func isNormalAddress(addr string) bool {
	return norm.NFC.IsNormalString(addr)
}

// checkAddresses rejects a request whose caller or address tags are not in
// NFC.
func checkAddresses(msg ir.Message) error {
	if !isNormalAddress(msg.From) {
		return invalid(fieldFrom, fmt.Sprintf(msgNotNormalizedFormat, fieldFrom))
	}
	for _, name := range addressTags {
		if v, ok := msg.Tag(name); ok && !isNormalAddress(v) {
			return invalid(name, fmt.Sprintf(msgNotNormalizedFormat, name))
		}
	}
	return nil
}
