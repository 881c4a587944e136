package phonetic

// Soundex is the American Soundex encoder: the first letter followed by
// three digits, zero padded.
type Soundex struct{}

var _ Encoder = Soundex{}

// soundexCodes maps A..Z to digit codes. '0' marks vowels (which separate
// repeated codes) and '-' marks H and W (which do not).
const soundexCodes = "0123012-02245501262301-202"

// Encode implements Encoder.
func (Soundex) Encode(s string) string {
	in := fold(s)
	if in == "" {
		return ""
	}

	out := make([]byte, 1, 4)
	out[0] = in[0]
	last := soundexCodes[in[0]-'A']

	for i := 1; i < len(in) && len(out) < 4; i++ {
		c := soundexCodes[in[i]-'A']
		switch c {
		case '-':
			continue
		case '0':
			last = c
			continue
		}
		if c != last {
			out = append(out, c)
		}
		last = c
	}
	for len(out) < 4 {
		out = append(out, '0')
	}
	return string(out)
}
