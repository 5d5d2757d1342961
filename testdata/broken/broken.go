package broken

type Box struct {
	Size int
}

var limit int = "unbounded"
