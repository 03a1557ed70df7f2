package dash

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComplement(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint32(0x000000), Complement(0xFFFFFF))
	assert.Equal(t, uint32(0xFFFFFF), Complement(0x000000))
	assert.Equal(t, uint32(0xEDCBA9), Complement(0x123456))
	assert.Equal(t, uint32(0x00FF00), Complement(0xFF00FF))
}

func TestComplementInvolution(t *testing.T) {
	t.Parallel()

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < 1000; i++ {
		c := uint32(rnd.Intn(1 << 24))
		if !assert.Equal(t, c, Complement(Complement(c))) {
			t.Fatalf("not involution c=%06x", c)
		}
	}
}
