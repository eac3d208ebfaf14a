package models

// Delta is the set of records new or changed since a watermark. Messages and
// Files are strictly newer than the watermark; Edited holds messages the
// client already has whose content changed after the watermark. A message
// created and edited after the watermark appears only in Messages.
type Delta struct {
	Messages []*Message
	Files    []*File
	Edited   []*Message
}

// Empty reports "no changes": callers can skip rendering/transfer entirely.
func (d *Delta) Empty() bool {
	return len(d.Messages) == 0 && len(d.Files) == 0 && len(d.Edited) == 0
}
