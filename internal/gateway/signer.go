package gateway

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Field subsets signed for each provider operation. Registration signs the
// full order identity, status checks and cancellations sign the payment id.
var (
	initSignedFields  = []string{"TerminalKey", "Amount", "OrderId", "Description", "CustomerKey"}
	stateSignedFields = []string{"TerminalKey", "PaymentId"}
)

// signToken computes the request-authentication token. The shared password
// is appended as a Password field, the pairs are sorted by field name, the
// values are concatenated without delimiters and hashed with SHA-256. The
// provider recomputes the same hash on its side, so the field set and the
// ordering must match bit-for-bit.
func signToken(fields map[string]string, names []string, password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("sign: terminal password is not configured")
	}

	pairs := make([][2]string, 0, len(names)+1)
	for _, name := range names {
		v, ok := fields[name]
		if !ok || v == "" {
			return "", fmt.Errorf("sign: missing required field %s", name)
		}
		pairs = append(pairs, [2]string{name, v})
	}
	pairs = append(pairs, [2]string{"Password", password})

	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })

	var sb strings.Builder
	for _, p := range pairs {
		sb.WriteString(p[1])
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:]), nil
}
