package lichess

import "context"

type Account struct {
	ID       string
	Username string
	Title    string
	Profile  Profile

	Engine   bool
	Disabled bool

	CreatedAt int64
	SeenAt    int64
}

func (account *Account) IsBot() bool {
	return account.Title == "BOT"
}

type Profile struct {
	FirstName string
	LastName  string
	Country   string
}

type User struct {
	ID     string
	Name   string
	Title  string
	Rating int64

	Online bool
}

type Clock struct {
	Initial   int64
	Increment int64
}

type Variant struct {
	Key  string
	Name string
}

func (lc *LichessClient) GetAccount(ctx context.Context) (*Account, error) {
	req, err := lc.newRequest(ctx, "GET", "/api/account", nil)
	if err != nil {
		return nil, err
	}

	res := Account{}
	err = lc.doJSONRequest(req, &res)
	return &res, err
}

func (lc *LichessClient) GetUser(ctx context.Context, username string) (*Account, error) {
	req, err := lc.newRequest(ctx, "GET", "/api/user/"+username, nil)
	if err != nil {
		return nil, err
	}

	res := Account{}
	err = lc.doJSONRequest(req, &res)
	return &res, err
}

// UpgradeAccount turns a fresh account into a bot account. It cannot be
// undone.
func (lc *LichessClient) UpgradeAccount(ctx context.Context) error {
	req, err := lc.newRequest(ctx, "POST", "/api/bot/account/upgrade", nil)
	if err != nil {
		return err
	}
	return lc.doRequestNoBody(req)
}
