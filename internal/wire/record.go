package wire

// Record is a decoded draw-command. Concrete types below implement it as a
// closed union; callers type-switch on the concrete type.
type Record interface {
	isRecord()
}

type ClearRecord struct{ R, G, B byte }

type SetColorRecord struct{ R, G, B, A byte }

type FillRectRecord struct{ X, Y, W, H float32 }

type DrawLineRecord struct{ X1, Y1, X2, Y2, Width float32 }

type DrawTextRecord struct {
	X, Y float32
	Text string
}

type LoadSoundRecord struct{ Name, URL string }

type PlaySoundRecord struct {
	Name   string
	Loop   bool
	Volume float32
}

type StopSoundRecord struct{ Name string }

type SetVolumeRecord struct {
	Name   string
	Volume float32
}

type LoadImageRecord struct{ Name, URL string }

type DrawImageRecord struct {
	Name string
	DrawImageArgs
}

func (ClearRecord) isRecord()     {}
func (SetColorRecord) isRecord()  {}
func (FillRectRecord) isRecord()  {}
func (DrawLineRecord) isRecord()  {}
func (DrawTextRecord) isRecord()  {}
func (LoadSoundRecord) isRecord() {}
func (PlaySoundRecord) isRecord() {}
func (StopSoundRecord) isRecord() {}
func (SetVolumeRecord) isRecord() {}
func (LoadImageRecord) isRecord() {}
func (DrawImageRecord) isRecord() {}
