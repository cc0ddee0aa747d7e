package protocol

// Terminate politely closes the connection.
type Terminate struct{}

func (t *Terminate) Encode(dst []byte) ([]byte, error) {
	var fw FrameWriter
	off := fw.BeginFrame(kindTerminate)
	fw.EndFrame(off)
	return append(dst, fw.Bytes()...), nil
}
