package transfer

type TwitterUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

type TwitterUserResponse struct {
	Data TwitterUser `json:"data"`
}

type TweetRequest struct {
	Text string `json:"text"`
}

type Tweet struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type TweetResponse struct {
	Data Tweet `json:"data"`
}

type TwitterErrorResponse struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
	Status int    `json:"status"`
}
