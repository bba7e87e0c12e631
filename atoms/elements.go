package atoms

import (
	"fmt"
	"strconv"
	"strings"
)

// symbols maps atomic number to element symbol for the elements this
// library's built-in systems use; Symbol falls back to "X<Z>" beyond it.
var symbols = [...]string{
	"", "H", "He", "Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar", "K", "Ca",
	"Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn",
	"Ga", "Ge", "As", "Se", "Br", "Kr", "Rb", "Sr", "Y", "Zr",
	"Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd", "In", "Sn",
	"Sb", "Te", "I", "Xe", "Cs", "Ba",
}

// Symbol returns the element symbol for atomic number z.
func Symbol(z int) string {
	if z > 0 && z < len(symbols) {
		return symbols[z]
	}
	return fmt.Sprintf("X%d", z)
}

// Number returns the atomic number for an element symbol, or 0 when the
// symbol is unknown. The "X<Z>" fallback form produced by Symbol is parsed
// back.
func Number(symbol string) int {
	for z, s := range symbols {
		if s == symbol {
			return z
		}
	}
	if strings.HasPrefix(symbol, "X") {
		if z, err := strconv.Atoi(symbol[1:]); err == nil {
			return z
		}
	}
	return 0
}
