package writer

// MemWriter keeps the last image in memory.
type MemWriter struct {
	Image Image
}

// WriteImage copies img, so later changes to the region do not show through.
func (w *MemWriter) WriteImage(img Image) error {
	if err := img.validate(); err != nil {
		return err
	}
	data := append(w.Image.Data[:0], img.Data...)
	w.Image = img
	w.Image.Data = data
	return nil
}

var _ Sink = (*MemWriter)(nil)
