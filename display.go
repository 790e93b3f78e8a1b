package colortrack

import "gocv.io/x/gocv"

// Display shows annotated frames. Show reports whether the user asked to stop.
type Display interface {
	Show(frame gocv.Mat) bool
	Close() error
}

// WindowDisplay shows frames in a desktop window and stops on the q key.
type WindowDisplay struct {
	window *gocv.Window
}

func NewWindowDisplay(title string) *WindowDisplay {
	return &WindowDisplay{window: gocv.NewWindow(title)}
}

func (w *WindowDisplay) Show(frame gocv.Mat) bool {
	w.window.IMShow(frame)
	return w.window.WaitKey(1)&0xFF == 'q'
}

func (w *WindowDisplay) Close() error {
	return w.window.Close()
}

// HeadlessDisplay discards frames. It is used when no window system is available.
type HeadlessDisplay struct{}

func (HeadlessDisplay) Show(gocv.Mat) bool { return false }

func (HeadlessDisplay) Close() error { return nil }
