package pms

import "encoding/binary"

// data word indexes
const (
	wPM1CF1 = iota
	wPM25CF1
	wPM10CF1
	wPM1Atm
	wPM25Atm
	wPM10Atm
	wN0_3
	wN0_5
	wN1_0
	wN2_5
	wN5_0
	wN10
)

// Decode validates a complete frame and extracts the measurement.
func Decode(frame []byte, model Model) (Measurement, error) {
	if len(frame) < headerLen+2 {
		return Measurement{}, ErrMsgBody
	}
	if frame[0] != start1 {
		return Measurement{}, ErrMsgStart
	}
	if frame[1] != start2 {
		return Measurement{}, ErrMsgHeader
	}
	length := binary.BigEndian.Uint16(frame[2:4])
	if int(length) != len(frame)-headerLen {
		return Measurement{}, ErrMsgBody
	}
	if checksum(frame[:len(frame)-2]) != binary.BigEndian.Uint16(frame[len(frame)-2:]) {
		return Measurement{}, ErrMsgChecksum
	}

	switch length {
	case ackLength:
		return Measurement{}, ErrMsgUnknown
	case pms3003Length, pms5003Length:
		if length != model.frameLength() {
			return Measurement{}, ErrPMSType
		}
	default:
		return Measurement{}, ErrMsgLength
	}

	word := func(i int) uint16 {
		return binary.BigEndian.Uint16(frame[headerLen+2*i:])
	}
	m := Measurement{
		PM1_0: word(wPM1Atm),
		PM2_5: word(wPM25Atm),
		PM10:  word(wPM10Atm),
	}
	if model == PMS5003 {
		m.Counts = &Counts{
			N0_3: word(wN0_3),
			N0_5: word(wN0_5),
			N1_0: word(wN1_0),
			N2_5: word(wN2_5),
			N5_0: word(wN5_0),
			N10:  word(wN10),
		}
	}
	return m, nil
}

// Encode builds the frame a sensor of the given model would send for m. The
// CF=1 words mirror the atmospheric ones.
func Encode(m Measurement, model Model) []byte {
	length := model.frameLength()
	frame := make([]byte, headerLen+int(length))
	frame[0], frame[1] = start1, start2
	binary.BigEndian.PutUint16(frame[2:4], length)

	put := func(i int, v uint16) {
		binary.BigEndian.PutUint16(frame[headerLen+2*i:], v)
	}
	put(wPM1CF1, m.PM1_0)
	put(wPM25CF1, m.PM2_5)
	put(wPM10CF1, m.PM10)
	put(wPM1Atm, m.PM1_0)
	put(wPM25Atm, m.PM2_5)
	put(wPM10Atm, m.PM10)
	if model == PMS5003 && m.Counts != nil {
		put(wN0_3, m.Counts.N0_3)
		put(wN0_5, m.Counts.N0_5)
		put(wN1_0, m.Counts.N1_0)
		put(wN2_5, m.Counts.N2_5)
		put(wN5_0, m.Counts.N5_0)
		put(wN10, m.Counts.N10)
	}
	binary.BigEndian.PutUint16(frame[len(frame)-2:], checksum(frame[:len(frame)-2]))
	return frame
}

// EncodeAck builds the length-4 frame a sensor sends back for a mode command.
func EncodeAck(cmd, data byte) []byte {
	frame := []byte{start1, start2, 0x00, ackLength, cmd, data, 0, 0}
	binary.BigEndian.PutUint16(frame[6:], checksum(frame[:6]))
	return frame
}

func checksum(b []byte) uint16 {
	var sum uint16
	for _, v := range b {
		sum += uint16(v)
	}
	return sum
}
