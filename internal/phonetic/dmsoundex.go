package phonetic

import (
	"sort"
	"strings"
)

// DaitchMokotoff is the Daitch–Mokotoff Soundex encoder. It yields six
// digit codes. Some letter groups have two possible pronunciations; by
// default only the primary code is returned, with Branching set every
// distinct code is returned joined by "|".
type DaitchMokotoff struct {
	Branching bool
}

var _ Encoder = DaitchMokotoff{}

const dmCodeLen = 6

// dmRule codes a letter group in three contexts: at the start of the word,
// before a vowel, and anywhere else. "" means not coded; "a|b" lists
// alternatives.
type dmRule struct {
	pattern     string
	start       string
	beforeVowel string
	other       string
}

var dmRules = buildRules([]dmRule{
	{"AI", "0", "1", ""}, {"AJ", "0", "1", ""}, {"AY", "0", "1", ""},
	{"AU", "0", "7", ""},
	{"A", "0", "", ""},
	{"B", "7", "7", "7"},
	{"CHS", "5", "54", "54"},
	{"CH", "5|4", "5|4", "5|4"},
	{"CK", "5|45", "5|45", "5|45"},
	{"CSZ", "4", "4", "4"}, {"CZS", "4", "4", "4"}, {"CZ", "4", "4", "4"}, {"CS", "4", "4", "4"},
	{"C", "5|4", "5|4", "5|4"},
	{"DRZ", "4", "4", "4"}, {"DRS", "4", "4", "4"},
	{"DSH", "4", "4", "4"}, {"DSZ", "4", "4", "4"}, {"DS", "4", "4", "4"},
	{"DZH", "4", "4", "4"}, {"DZS", "4", "4", "4"}, {"DZ", "4", "4", "4"},
	{"DT", "3", "3", "3"}, {"D", "3", "3", "3"},
	{"EI", "0", "1", ""}, {"EJ", "0", "1", ""}, {"EY", "0", "1", ""},
	{"EU", "1", "1", ""},
	{"E", "0", "", ""},
	{"FB", "7", "7", "7"}, {"F", "7", "7", "7"},
	{"G", "5", "5", "5"},
	{"H", "5", "5", ""},
	{"IA", "1", "", ""}, {"IE", "1", "", ""}, {"IO", "1", "", ""}, {"IU", "1", "", ""},
	{"I", "0", "", ""},
	{"J", "1|4", "|4", "|4"},
	{"KS", "5", "54", "54"}, {"KH", "5", "5", "5"}, {"K", "5", "5", "5"},
	{"L", "8", "8", "8"},
	{"MN", "66", "66", "66"}, {"M", "6", "6", "6"},
	{"NM", "66", "66", "66"}, {"N", "6", "6", "6"},
	{"OI", "0", "1", ""}, {"OJ", "0", "1", ""}, {"OY", "0", "1", ""},
	{"O", "0", "", ""},
	{"PF", "7", "7", "7"}, {"PH", "7", "7", "7"}, {"P", "7", "7", "7"},
	{"Q", "5", "5", "5"},
	{"RZ", "94|4", "94|4", "94|4"}, {"RS", "94|4", "94|4", "94|4"},
	{"R", "9", "9", "9"},
	{"SCHTSCH", "2", "4", "4"}, {"SCHTSH", "2", "4", "4"}, {"SCHTCH", "2", "4", "4"},
	{"SHTCH", "2", "4", "4"}, {"SHTSH", "2", "4", "4"}, {"SHCH", "2", "4", "4"},
	{"STSCH", "2", "4", "4"}, {"STRZ", "2", "4", "4"}, {"STRS", "2", "4", "4"},
	{"STSH", "2", "4", "4"}, {"STCH", "2", "4", "4"},
	{"SZCZ", "2", "4", "4"}, {"SZCS", "2", "4", "4"},
	{"SCHT", "2", "43", "43"}, {"SCHD", "2", "43", "43"}, {"SHT", "2", "43", "43"},
	{"SZT", "2", "43", "43"}, {"SHD", "2", "43", "43"}, {"SZD", "2", "43", "43"},
	{"SCH", "4", "4", "4"},
	{"SC", "2", "4", "4"}, {"ST", "2", "43", "43"}, {"SD", "2", "43", "43"},
	{"SH", "4", "4", "4"}, {"SZ", "4", "4", "4"},
	{"S", "4", "4", "4"},
	{"TTSCH", "4", "4", "4"}, {"TTSZ", "4", "4", "4"},
	{"TSCH", "4", "4", "4"}, {"TTCH", "4", "4", "4"},
	{"TCH", "4", "4", "4"}, {"TRZ", "4", "4", "4"}, {"TRS", "4", "4", "4"},
	{"TSH", "4", "4", "4"}, {"TTS", "4", "4", "4"}, {"TTZ", "4", "4", "4"},
	{"TZS", "4", "4", "4"}, {"TSZ", "4", "4", "4"},
	{"TH", "3", "3", "3"}, {"TS", "4", "4", "4"}, {"TC", "4", "4", "4"}, {"TZ", "4", "4", "4"},
	{"T", "3", "3", "3"},
	{"UI", "0", "1", ""}, {"UJ", "0", "1", ""}, {"UY", "0", "1", ""},
	{"UE", "0", "", ""},
	{"U", "0", "", ""},
	{"V", "7", "7", "7"},
	{"W", "7", "7", "7"},
	{"X", "5", "54", "54"},
	{"Y", "1", "", ""},
	{"ZHDZH", "2", "4", "4"}, {"ZDZH", "2", "4", "4"}, {"ZDZ", "2", "4", "4"},
	{"ZSCH", "4", "4", "4"}, {"ZHD", "2", "43", "43"},
	{"ZSH", "4", "4", "4"}, {"ZD", "2", "43", "43"},
	{"ZH", "4", "4", "4"}, {"ZS", "4", "4", "4"},
	{"Z", "4", "4", "4"},
})

// buildRules indexes rules by first letter, longest pattern first.
func buildRules(rules []dmRule) map[byte][]dmRule {
	idx := make(map[byte][]dmRule)
	for _, r := range rules {
		idx[r.pattern[0]] = append(idx[r.pattern[0]], r)
	}
	for _, rs := range idx {
		sort.SliceStable(rs, func(i, j int) bool {
			return len(rs[i].pattern) > len(rs[j].pattern)
		})
	}
	return idx
}

func isDMVowel(c byte) bool {
	switch c {
	case 'A', 'E', 'I', 'O', 'U':
		return true
	}
	return false
}

type dmBranch struct {
	code []byte
	last string
}

// Encode implements Encoder.
func (d DaitchMokotoff) Encode(s string) string {
	in := fold(s)
	if in == "" {
		return ""
	}

	branches := []dmBranch{{}}
	for i := 0; i < len(in); {
		rule, ok := match(in, i)
		if !ok {
			i++
			continue
		}
		next := i + len(rule.pattern)

		var codes string
		switch {
		case i == 0:
			codes = rule.start
		case next < len(in) && isDMVowel(in[next]):
			codes = rule.beforeVowel
		default:
			codes = rule.other
		}
		// MN and NM are coded as two separate letters.
		force := rule.pattern == "MN" || rule.pattern == "NM"

		alts := strings.Split(codes, "|")
		grown := make([]dmBranch, 0, len(branches)*len(alts))
		for _, b := range branches {
			for _, alt := range alts {
				nb := dmBranch{code: append([]byte(nil), b.code...), last: b.last}
				if alt != "" && (force || alt != nb.last) {
					nb.code = append(nb.code, alt...)
				}
				nb.last = alt
				grown = append(grown, nb)
			}
		}
		branches = grown
		if !d.Branching {
			branches = branches[:1]
		}
		i = next
	}

	seen := make(map[string]struct{}, len(branches))
	out := make([]string, 0, len(branches))
	for _, b := range branches {
		c := pad(b.code)
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return strings.Join(out, "|")
}

func match(in string, i int) (dmRule, bool) {
	for _, r := range dmRules[in[i]] {
		if strings.HasPrefix(in[i:], r.pattern) {
			return r, true
		}
	}
	return dmRule{}, false
}

func pad(code []byte) string {
	if len(code) >= dmCodeLen {
		return string(code[:dmCodeLen])
	}
	return string(code) + strings.Repeat("0", dmCodeLen-len(code))
}
