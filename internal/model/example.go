package model

type Greeting struct {
	Message string `json:"message"`
}

type Sum struct {
	Result float64 `json:"result"`
}
