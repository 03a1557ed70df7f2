package dash

// Complement inverts each 8-bit channel of a 24-bit RGB color:
// ((255-R)<<16)|((255-G)<<8)|(255-B). This is bitwise inversion per
// channel, not a perceptual inverse. It is an involution, which is
// what makes highlight toggling work: applying it twice restores the
// original color.
func Complement(rgb uint32) uint32 {
	return ((255 - ((rgb >> 16) & 0xFF)) << 16) |
		((255 - ((rgb >> 8) & 0xFF)) << 8) |
		(255 - (rgb & 0xFF))
}
