package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSimilar(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"surname within full name", "Bickford", "Brandon Bickford", true},
		{"trailing s", "Bickford", "Brandon Bickfords", true},
		{"different surname", "Bickford", "Brandon Johnson", false},
		{"full names trailing s", "Brandon Bickford", "Brandon Bickfords", true},
		{"full names different surname", "Brandon Bickford", "Brandon Johnson", false},
		{"case and punctuation", "BICKFORD,  brandon", "brandon-bickford", true},
		{"diacritics folded", "José Müller", "Jose Muller", true},
		{"transliteration noise", "Mohamed Juma", "Mohammed Juma", true},
		{"short tokens must match exactly", "Ali", "Alo", false},
		{"short token exact", "Ali Hassan", "Ali Hassani", true},
		{"repeated token needs a second partner", "Juma Juma", "Juma Said", false},
		{"repeated token against other given name", "Juma Juma", "Juma Ali", false},
		{"repeated token paired twice", "Juma Juma", "Juma Juma Ali", true},
		{"each token needs its own partner", "Anna Anne", "Anna", true},
		{"distinct partners required", "Anna Annie", "Anna Bakari", false},
		{"empty", "", "Brandon", false},
		{"only digits", "1234", "1234", false},
		{"unrelated", "Neema", "Rehema", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSimilar(tt.a, tt.b), "IsSimilar(%q, %q)", tt.a, tt.b)
			assert.Equal(t, tt.want, IsSimilar(tt.b, tt.a), "IsSimilar(%q, %q)", tt.b, tt.a)
		})
	}
}

func TestTokenSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, TokenSimilarity("bickford", "bickford"), 1e-9)
	assert.InDelta(t, 1-1.0/9, TokenSimilarity("bickford", "bickfords"), 1e-9)
	assert.InDelta(t, 1.0, TokenSimilarity("", ""), 1e-9)
	assert.Less(t, TokenSimilarity("bickford", "johnson"), Threshold)
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"brandon", "bickford", "brandon"}, Tokens("  Brandon BICKFORD brandon "))
	assert.Equal(t, []string{"jose", "o", "neil"}, Tokens("José O'Neil"))
	assert.Empty(t, Tokens("123 456"))
}
