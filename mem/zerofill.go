package mem

// A BlockZeroer is a memory that can clear bytes one at a time and can also
// clear a whole aligned block at once.
type BlockZeroer interface {
	Write(address uint64, data []byte) error
	ZeroBlock(address uint64) error
}

// ZeroFill clears n bytes starting at address. Whenever the current position
// is block aligned and a full block remains, the block path is used.
// Otherwise bytes are cleared up to the next block boundary.
func ZeroFill(m BlockZeroer, address uint64, n uint64) error {
	for n > 0 {
		toBoundary := -address & (BlockSize - 1)

		if toBoundary == 0 && n >= BlockSize {
			numBlocks := n / BlockSize
			for i := uint64(0); i < numBlocks; i++ {
				err := m.ZeroBlock(address + i*BlockSize)
				if err != nil {
					return err
				}
			}

			address += numBlocks * BlockSize
			n -= numBlocks * BlockSize

			continue
		}

		nb := toBoundary
		if nb == 0 || nb > n {
			nb = n
		}

		err := m.Write(address, make([]byte, nb))
		if err != nil {
			return err
		}

		address += nb
		n -= nb
	}

	return nil
}
