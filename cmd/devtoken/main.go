// Command devtoken mints a bearer token for local testing.  It signs with
// JWT_SECRET from the environment or .env, the same secret the server
// verifies with.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/iliyamo/group-travel-bidding/internal/middleware"
	"github.com/iliyamo/group-travel-bidding/internal/utils"
)

func main() {
	_ = godotenv.Load()
	viper.AutomaticEnv()
	viper.SetDefault("ACCESS_TOKEN_TTL_MIN", 15)

	userID := flag.Uint64("user", 1, "user id placed in the sub claim")
	role := flag.String("role", middleware.RoleCustomer, "CUSTOMER or OPERATOR")
	ttl := flag.Int("ttl", viper.GetInt("ACCESS_TOKEN_TTL_MIN"), "lifetime in minutes")
	flag.Parse()

	r := strings.ToUpper(*role)
	if r != middleware.RoleCustomer && r != middleware.RoleOperator {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}
	tok, err := utils.NewAccessToken(viper.GetString("JWT_SECRET"), *userID, r, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "devtoken:", err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
}
