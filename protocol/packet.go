package protocol

// calcSum computes the packet checksum: the two's-complement of the
// sum of LNH, LNL, RCB and every payload byte, taken mod 256. Pack and
// Unpack both call this; it is the single source of truth for the
// checksum rule.
func calcSum(lnh, lnl, rcb byte, payload []byte) byte {
	sum := int(lnh) + int(lnl) + int(rcb)
	for _, b := range payload {
		sum += int(b)
	}
	return byte(-sum)
}

// Pack frames a single request or reply. cmd selects the RCB's
// command-id bits; ack selects the SOD byte (false -> 0x01 request,
// true -> 0x81 reply/ack). Returns ErrOversizePayload if len(payload)
// exceeds MaxPayload.
func Pack(cmd byte, payload []byte, ack bool) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, ErrOversizePayload
	}
	length := len(payload) + 1
	lnh := byte(length >> 8)
	lnl := byte(length)
	sod := byte(sodRequest)
	if ack {
		sod = SodReply
	}
	sum := calcSum(lnh, lnl, cmd, payload)

	out := make([]byte, 0, 4+len(payload)+2)
	out = append(out, sod, lnh, lnl, cmd)
	out = append(out, payload...)
	out = append(out, sum, etx)
	return out, nil
}

// Unpack deframes a single reply previously produced by a device in
// response to a Pack'd request. On success it returns the echoed
// command id (with the error bit, if any, masked off) and the
// payload. If the reply carries the error-status bit, it returns the
// command id with the bit intact plus a *McuError populated from the
// first payload byte, so callers can log "cmd|0x80" alongside the MCU
// code.
func Unpack(buf []byte) (cmd byte, payload []byte, err error) {
	if len(buf) < 6 {
		return 0, nil, &FramingError{Reason: "short buffer", Len: len(buf)}
	}
	if buf[0] != SodReply {
		return 0, nil, &FramingError{Reason: "bad SOD", Len: len(buf)}
	}
	length := int(buf[1])<<8 | int(buf[2])
	payloadLen := length - 1
	if payloadLen < 0 {
		return 0, nil, &FramingError{Reason: "bad length field", Len: len(buf)}
	}
	need := 4 + payloadLen + 2
	if len(buf) < need {
		return 0, nil, &FramingError{Reason: "short buffer", Len: len(buf)}
	}
	rcb := buf[3]
	body := buf[4 : 4+payloadLen]
	sum := buf[4+payloadLen]
	end := buf[4+payloadLen+1]
	if end != etx {
		return 0, nil, &FramingError{Reason: "bad ETX", Len: len(buf)}
	}
	want := calcSum(buf[1], buf[2], rcb, body)
	if want != sum {
		return 0, nil, &ChecksumError{Want: want, Got: sum}
	}
	if rcb&errBit != 0 {
		code := byte(0)
		if len(body) > 0 {
			code = body[0]
		}
		return rcb, body, &McuError{Code: code}
	}
	return rcb, body, nil
}
