package sparse

// germanStopwords lists high-frequency German function words that carry
// no retrieval signal for tender documents.
var germanStopwords = map[string]struct{}{
	"der": {}, "die": {}, "das": {}, "den": {}, "dem": {}, "des": {},
	"ein": {}, "eine": {}, "einer": {}, "eines": {},
	"und": {}, "oder": {}, "aber": {}, "ist": {}, "sind": {},
	"wird": {}, "werden": {}, "hat": {}, "haben": {},
	"für": {}, "von": {}, "mit": {}, "auf": {}, "in": {}, "zu": {},
	"an": {}, "bei": {}, "durch": {}, "über": {},
	"um": {}, "nach": {}, "aus": {}, "vor": {}, "zwischen": {}, "unter": {},
	"auch": {}, "noch": {}, "nur": {},
	"sich": {}, "nicht": {}, "mehr": {}, "als": {}, "wie": {},
	"da": {}, "so": {}, "wenn": {}, "dann": {},
}
