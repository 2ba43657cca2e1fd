package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"jordanella.com/gamebot-go/internal/database"
)

func main() {
	dbPath := flag.String("db", "gamebot.db", "Path to the job journal")
	jobID := flag.String("job", "", "Show the history of a single job")
	limit := flag.Int("limit", 50, "Maximum number of events to print")
	botName := flag.String("bot", "", "List the actions registered by this bot")
	rollback := flag.Int("rollback", -1, "Roll the schema back to this version and exit")
	flag.Parse()

	if _, err := os.Stat(*dbPath); err != nil {
		log.Fatalf("Journal not found: %v", err)
	}

	db, err := database.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open journal: %v", err)
	}
	defer db.Close()

	if *rollback >= 0 {
		if err := db.RollbackTo(*rollback); err != nil {
			log.Fatalf("Failed to roll back: %v", err)
		}
		log.Printf("Rolled back to schema version %d", *rollback)
		return
	}

	applied, err := db.RunMigrations()
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	version, err := db.GetVersion()
	if err != nil {
		log.Fatalf("Failed to read schema version: %v", err)
	}
	log.Printf("Journal %s at schema version %d/%d (%d applied now)", db.Path(), version, database.LatestVersion(), applied)

	if *botName != "" {
		names, err := db.RegisteredActions(*botName)
		if err != nil {
			log.Fatalf("Failed to list actions: %v", err)
		}
		fmt.Printf("Actions registered by %s: %s\n", *botName, strings.Join(names, ", "))
	}

	var records []*database.JobEventRecord
	if *jobID != "" {
		records, err = db.JobHistory(*jobID, *limit)
	} else {
		records, err = db.RecentJobEvents(*limit)
	}
	if err != nil {
		log.Fatalf("Failed to read events: %v", err)
	}
	if len(records) == 0 {
		fmt.Println("No job events recorded")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tBOT\tJOB\tACTION\tEVENT\tSTATE\tMESSAGE")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.OccurredAt.Local().Format(time.DateTime),
			r.Bot, r.JobID, r.ActionName, r.EventType, r.State, r.Message)
	}
	w.Flush()
}
