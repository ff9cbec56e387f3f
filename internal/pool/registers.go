package pool

// defaultBankSize covers the default register count of a program.
const defaultBankSize = 8

// RegisterBanks pools the register banks used by program execution. Banks
// are handed out as pointers so Put does not allocate.
var RegisterBanks = NewPool(
	func() *[]float64 {
		b := make([]float64, 0, defaultBankSize)
		return &b
	},
	func(b **[]float64) {
		**b = (**b)[:0]
	},
)

// GetRegisters returns a zeroed bank of n registers and the handle to give
// back to PutRegisters once the bank is no longer used.
func GetRegisters(n int) ([]float64, *[]float64) {
	handle := RegisterBanks.Get()
	bank := *handle
	if cap(bank) < n {
		bank = make([]float64, n)
	} else {
		bank = bank[:n]
		clear(bank)
	}
	*handle = bank
	return bank, handle
}

// PutRegisters releases a bank obtained from GetRegisters.
func PutRegisters(handle *[]float64) {
	if handle != nil {
		RegisterBanks.Put(handle)
	}
}
