package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/provenix-dev/provenix-store/pkg/sdk"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	client, err := sdk.New()
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}

	// A token from a previous LOGIN can be carried via the environment.
	if c, ok := client.(*sdk.Client); ok {
		if token := os.Getenv("PROVENIX_TOKEN"); token != "" {
			c.SetToken(token)
		}
	}

	ctx := context.Background()
	command := strings.ToUpper(os.Args[1])
	args := os.Args[2:]

	switch command {
	case "CREATE":
		if len(args) < 3 {
			log.Fatal("Usage: provenix CREATE <name> <email> <password>")
		}
		user, err := client.Create(ctx, args[0], args[1], args[2])
		if err != nil {
			log.Fatal(err)
		}
		printJSON(user)

	case "LOGIN":
		if len(args) < 2 {
			log.Fatal("Usage: provenix LOGIN <email> <password>")
		}
		token, err := client.Login(ctx, args[0], args[1])
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(token)

	case "GET":
		user, err := client.Get(ctx, parseID(args, "provenix GET <id>"))
		if err != nil {
			log.Fatal(err)
		}
		printJSON(user)

	case "UPDATE":
		if len(args) < 3 {
			log.Fatal("Usage: provenix UPDATE <id> <name> <email>")
		}
		user, err := client.Update(ctx, parseID(args, "provenix UPDATE <id> <name> <email>"), args[1], args[2])
		if err != nil {
			log.Fatal(err)
		}
		printJSON(user)

	case "DEL":
		if err := client.Delete(ctx, parseID(args, "provenix DEL <id>")); err != nil {
			log.Fatal(err)
		}
		fmt.Println("OK")

	case "HISTORY":
		entries, err := client.History(ctx, parseID(args, "provenix HISTORY <id>"))
		if err != nil {
			log.Fatal(err)
		}
		printJSON(entries)

	case "RESTORE":
		if len(args) < 2 {
			log.Fatal("Usage: provenix RESTORE <id> <version>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil || version < 1 {
			log.Fatalf("Invalid version: %s", args[1])
		}
		if err := client.Restore(ctx, parseID(args, "provenix RESTORE <id> <version>"), version); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Restored to version %d\n", version)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

func parseID(args []string, usage string) int64 {
	if len(args) < 1 {
		log.Fatalf("Usage: %s", usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id < 1 {
		log.Fatalf("Invalid user id: %s", args[0])
	}
	return id
}

func printUsage() {
	fmt.Println("Provenix CLI - Interface for provenix-store")
	fmt.Println("\nUsage:")
	fmt.Println("  provenix CREATE <name> <email> <password>")
	fmt.Println("  provenix LOGIN <email> <password>")
	fmt.Println("  provenix GET <id>")
	fmt.Println("  provenix UPDATE <id> <name> <email>")
	fmt.Println("  provenix DEL <id>")
	fmt.Println("  provenix HISTORY <id>")
	fmt.Println("  provenix RESTORE <id> <version>")
	fmt.Println("\nEnvironment Variables:")
	fmt.Println("  PROVENIX_STORE_ADDR    Address of the store daemon (embedded mode when unset)")
	fmt.Println("  PROVENIX_TOKEN         Bearer token from a previous LOGIN")
	fmt.Println("  PROVENIX_DISABLE_TLS   Set to true to disable TLS")
}

func printJSON(v any) {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(bytes))
}
