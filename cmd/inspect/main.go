package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"synergy/domain"
	"synergy/domain/event"
	"synergy/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

// inspect dumps the chat log of one project from a badger directory, read-only,
// so it can run next to a live server.
func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	projectID := flag.String("project", "", "Project whose conversation is printed")
	flag.Parse()

	if *projectID == "" {
		flag.Usage()
		os.Exit(2)
	}

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	repository := repositories.NewMessageRepository(db, logs.GetLoggerFromString("ERROR"), nil)
	messages, err := repository.GetMessages(*projectID)
	if err != nil {
		log.Fatal("Error while reading messages: ", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Seq", "Timestamp", "ID", "User", "Content"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, m := range messages {
		table.Append(row(m))
	}
	table.Render()
	fmt.Printf("\n%d message(s) in project %s\n", len(messages), *projectID)
}

func row(m domain.Message) []string {
	return []string{
		strconv.FormatUint(m.Sequence, 10),
		event.FormatTimestamp(m.Timestamp),
		m.ID,
		m.Username,
		m.Content,
	}
}
