// Command cli-client is a headless REPL chat client, the flag-driven
// counterpart to cmd/chat-client's Fyne front end. Commands typed on
// stdin are parsed the same way original_source/Client/repl.py parses
// them and dispatched through internal/chatclient.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"rdtchat/internal/chatclient"
	"rdtchat/internal/config"
	"rdtchat/internal/rdttrace"
)

func main() {
	host := flag.String("host", "127.0.0.1", "server address")
	port := flag.Int("port", config.DefaultReceiverPort, "server port")
	username := flag.String("user", "", "chat username (required)")
	lossProb := flag.Float64("loss", config.DefaultChannelConfig().LossProb, "simulated packet loss probability")
	corruptProb := flag.Float64("corrupt", config.DefaultChannelConfig().CorruptProb, "simulated corruption probability")
	tracePath := flag.String("trace", "", "path to write a packet trace log (empty disables tracing)")
	flag.Parse()

	if strings.TrimSpace(*username) == "" {
		fmt.Fprintln(os.Stderr, "missing -user")
		os.Exit(1)
	}

	var tr *rdttrace.Logger
	if *tracePath != "" {
		t, err := rdttrace.Open(*tracePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening trace log: %v\n", err)
			os.Exit(1)
		}
		tr = t
		defer tr.Close()
	}

	channel := config.DefaultChannelConfig()
	channel.LossProb = *lossProb
	channel.CorruptProb = *corruptProb
	epCfg := config.DefaultEndpointConfig()

	client, err := chatclient.Dial(*host, *port, *username, channel, epCfg, tr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	fmt.Printf("logged in as %s. Type 'help' for commands.\n", *username)
	runRepl(client)
}

func runRepl(client *chatclient.Client) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tokens := strings.Fields(line)
		switch tokens[0] {
		case "help":
			printHelp()
		case "exit", "logout":
			return
		case "list_users":
			users, err := client.ListUsers()
			report(err, strings.Join(users, ", "))
		case "create_group":
			if len(tokens) < 2 {
				fmt.Println("usage: create_group <name>")
				continue
			}
			g, err := client.CreateGroup(tokens[1])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("created %s, key=%s\n", g.Name, g.Key)
		case "join_group":
			if len(tokens) < 2 {
				fmt.Println("usage: join_group <name> [key]")
				continue
			}
			key := ""
			if len(tokens) > 2 {
				key = tokens[2]
			}
			g, err := client.JoinGroup(tokens[1], key)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("joined %s, %d member(s)\n", g.Name, len(g.Members))
		case "send_group":
			if len(tokens) < 3 {
				fmt.Println("usage: send_group <name> <message...>")
				continue
			}
			err := client.SendGroup(tokens[1], strings.Join(tokens[2:], " "))
			report(err, "sent")
		case "send_direct":
			if len(tokens) < 3 {
				fmt.Println("usage: send_direct <peer> <message...>")
				continue
			}
			err := client.SendDirect(tokens[1], strings.Join(tokens[2:], " "))
			report(err, "sent")
		case "fetch_history":
			if len(tokens) < 2 {
				fmt.Println("usage: fetch_history <chat>")
				continue
			}
			msgs, err := client.FetchHistory(tokens[1])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			if len(msgs) == 0 {
				fmt.Println("no messages")
				continue
			}
			for _, m := range msgs {
				fmt.Printf("[%s] %s: %s\n", m.Timestamp, m.Sender, m.Content)
			}
		default:
			fmt.Println("unknown command, type 'help'")
		}
	}
}

func report(err error, ok string) {
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(ok)
}

func printHelp() {
	fmt.Print(`available commands:
  list_users                        list every registered username
  create_group <name>                create a group, printing its join key
  join_group <name> [key]            join a group (owner needs no key)
  send_group <name> <message...>     post a message to a group
  send_direct <peer> <message...>    send a direct message
  fetch_history <chat>               show history for "user_peer" or a group name
  logout / exit                      leave the session
  help                                show this message
`)
}
