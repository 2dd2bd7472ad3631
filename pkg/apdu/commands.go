package apdu

// Application identifiers of the device applets.
const (
	AIDSSL = "SSLAPPLET"
	AIDBTC = "BTCAPPLET"
	AIDETH = "ETHAPPLET"
	AIDXRP = "XRPAPPLET"
)

// ChunkSize is the stride of transaction chunk reads.
const ChunkSize = 128

var (
	// SelectSSL selects the secure channel applet.
	SelectSSL = Select(AIDSSL)
	// ResetSSL drops any inner tunnel state on the device.
	ResetSSL = []byte{0x80, 0x20, 0x00, 0x00}
)

// Select builds 00 A4 04 00 Lc AID.
func Select(aid string) []byte {
	out := []byte{0x00, 0xA4, 0x04, 0x00, byte(len(aid))}
	return append(out, aid...)
}

// IsSelect reports whether cmd is a SELECT by name and returns the AID.
func IsSelect(cmd []byte) (string, bool) {
	if len(cmd) < 5 || cmd[0] != 0x00 || cmd[1] != 0xA4 || cmd[2] != 0x04 || cmd[3] != 0x00 {
		return "", false
	}
	if int(cmd[4]) != len(cmd)-5 {
		return "", false
	}
	return string(cmd[5:]), true
}

// TxCommands is the instruction set one chain applet uses for its
// pending transaction: info, chunked read and (BTC only) input amounts.
type TxCommands struct {
	CLA byte
	INS byte
}

const (
	p1Info         = 0x00
	p1ReadChunk    = 0x01
	p1InputAmounts = 0x02
)

var (
	BTCCommands = TxCommands{CLA: 0xE0, INS: 0xE0}
	ETHCommands = TxCommands{CLA: 0x80, INS: 0xE0}
	XRPCommands = TxCommands{CLA: 0x80, INS: 0xE0}
)

// Info returns the pending transaction metadata command.
func (c TxCommands) Info() []byte {
	return []byte{c.CLA, c.INS, p1Info, 0x00}
}

// ReadChunk returns the command reading chunk index i.
func (c TxCommands) ReadChunk(i uint16) []byte {
	return []byte{c.CLA, c.INS, p1ReadChunk, 0x00, 0x02, byte(i >> 8), byte(i)}
}

// InputAmounts returns the command reading the UTXO input values.
func (c TxCommands) InputAmounts() []byte {
	return []byte{c.CLA, c.INS, p1InputAmounts, 0x00}
}

// Parse classifies a transaction command for the device side.
// kind is "info", "chunk" or "amounts"; chunk carries the index for reads.
func (c TxCommands) Parse(cmd []byte) (kind string, chunk uint16, ok bool) {
	if len(cmd) < 4 || cmd[0] != c.CLA || cmd[1] != c.INS || cmd[3] != 0x00 {
		return "", 0, false
	}
	switch cmd[2] {
	case p1Info:
		return "info", 0, len(cmd) == 4
	case p1InputAmounts:
		return "amounts", 0, len(cmd) == 4
	case p1ReadChunk:
		if len(cmd) != 7 || cmd[4] != 0x02 {
			return "", 0, false
		}
		return "chunk", uint16(cmd[5])<<8 | uint16(cmd[6]), true
	}
	return "", 0, false
}
