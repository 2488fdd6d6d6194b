package main

import (
	"fmt"
	"io"

	"github.com/fitvtt/attrition/internal/timeutil"
	"github.com/fitvtt/attrition/pkg/core"
)

// runSimulation drives the engine through a scripted party for the given
// number of in-game days, one hour per tick, and prints the roster at each
// day boundary. Bruenor eats, drinks and rests daily; Regis consumes
// nothing; Wulfgar leaves the scene halfway through and freezes.
func runSimulation(e *engine, out io.Writer, days int) error {
	party := []core.Actor{
		{
			ID: "bruenor", Name: "Bruenor", PlayerOwned: true, ConModifier: 3,
			Owners: []core.UserID{"u1"},
			Items: []core.Item{
				{ID: "i1", Name: "Rations", Quantity: days},
				{ID: "i2", Name: "Waterskin", Charges: days, MaxCharges: days},
			},
		},
		{
			ID: "regis", Name: "Regis", PlayerOwned: true, ConModifier: 0,
			Owners: []core.UserID{"u2"},
		},
		{
			ID: "wulfgar", Name: "Wulfgar", PlayerOwned: true, ConModifier: 1,
			Owners: []core.UserID{"u3"},
		},
	}

	e.world.SetAuthoritative(true)
	for _, a := range party {
		e.world.UpsertActor(a)
	}
	e.world.SetPlayers([]core.UserID{"u1", "u2", "u3"})
	e.world.SetScene([]core.ActorID{"bruenor", "regis", "wulfgar"})

	if err := e.service.InitializeScene(); err != nil {
		return fmt.Errorf("initializing scene: %w", err)
	}

	totalHours := int64(days) * 24
	for hour := int64(1); hour <= totalHours; hour++ {
		now := hour * timeutil.Hour
		e.world.SetTime(now)
		e.sched.HandleTick(core.Tick{Now: now, Elapsed: timeutil.Hour})

		if hour == totalHours/2 {
			fmt.Fprintf(out, "--- Wulfgar leaves the scene at hour %d ---\n", hour)
			e.world.SetScene([]core.ActorID{"bruenor", "regis"})
		}

		if hour%24 != 0 {
			continue
		}

		// Bruenor keeps up with his supplies every evening
		if err := e.service.ConsumeFood("bruenor"); err != nil {
			return err
		}
		if err := e.service.ConsumeWater("bruenor"); err != nil {
			return err
		}
		if err := e.service.RestTaken("bruenor"); err != nil {
			return err
		}

		fmt.Fprintf(out, "--- day %d ---\n", hour/24)
		writeRoster(out, e.service.Roster())
	}

	return nil
}
