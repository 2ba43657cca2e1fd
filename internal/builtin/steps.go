package builtin

import (
	"context"
	"fmt"

	"jordanella.com/gamebot-go/internal/actions"
	"jordanella.com/gamebot-go/internal/actuation"
)

func goTo(act actuation.Actuator) actions.Action {
	return actions.MustPredefined("GoTo", "Go to a specific location",
		[]actions.Parameter{
			number("x", "X coordinate of the target"),
			number("y", "Y coordinate of the target"),
			number("z", "Z coordinate of the target"),
		},
		func(v actions.Values, _ actions.Agent) (actions.Body, error) {
			target := position(v, "x", "y", "z")
			return actions.NewStep("GoTo", func(ctx context.Context) error {
				return act.MoveTo(ctx, target)
			}), nil
		})
}

func placeBlock(act actuation.Actuator) actions.Action {
	return actions.MustPredefined("PlaceBlock", "Place a block",
		[]actions.Parameter{
			number("x", "X coordinate of the block you want to place"),
			number("y", "Y coordinate of the block you want to place"),
			number("z", "Z coordinate of the block you want to place"),
			text("blockName", "The name of the block"),
		},
		func(v actions.Values, _ actions.Agent) (actions.Body, error) {
			at := position(v, "x", "y", "z")
			block := v.String("blockName")
			if block == "" {
				return nil, fmt.Errorf("%w: blockName is required", actions.ErrValidation)
			}
			return actions.NewStep("PlaceBlock", func(ctx context.Context) error {
				return act.PlaceBlock(ctx, at, block)
			}), nil
		})
}

func killMob(act actuation.Actuator) actions.Action {
	return actions.MustPredefined("KillMob", "Kill a mob",
		[]actions.Parameter{
			number("mobId", "Id of the mob"),
		},
		func(v actions.Values, _ actions.Agent) (actions.Body, error) {
			mobID := v.Int("mobId")
			return actions.NewAtomicStep("KillMob", func(ctx context.Context) error {
				return act.Attack(ctx, mobID)
			}), nil
		})
}

func furnace(act actuation.Actuator) actions.Action {
	return actions.MustPredefined("Furnace", "Furnace something",
		[]actions.Parameter{
			number("x", "X coordinate of the furnace"),
			number("y", "Y coordinate of the furnace"),
			number("z", "Z coordinate of the furnace"),
			text("inputItemName", "The name of the item to be smelted"),
			number("inputItemCount", "The count of the item to be smelted"),
			text("fuelName", "The name of the fuel"),
			number("fuelCount", "The count of the fuel"),
		},
		func(v actions.Values, _ actions.Agent) (actions.Body, error) {
			at := position(v, "x", "y", "z")
			inputCount, err := count(v, "inputItemCount")
			if err != nil {
				return nil, err
			}
			fuelCount, err := count(v, "fuelCount")
			if err != nil {
				return nil, err
			}
			input := actuation.ItemStack{Name: v.String("inputItemName"), Count: inputCount}
			fuel := actuation.ItemStack{Name: v.String("fuelName"), Count: fuelCount}
			return actions.NewAtomicStep("Furnace", func(ctx context.Context) error {
				return act.Smelt(ctx, at, input, fuel)
			}), nil
		})
}

func craftItem(act actuation.Actuator) actions.Action {
	return actions.MustPredefined("CraftItem", "Craft an item",
		[]actions.Parameter{
			text("itemName", "The name of the item"),
			number("count", "The count of the item"),
			number("craftingTableX", "The X coordinate of the target crafting table"),
			number("craftingTableY", "The Y coordinate of the target crafting table"),
			number("craftingTableZ", "The Z coordinate of the target crafting table"),
		},
		func(v actions.Values, _ actions.Agent) (actions.Body, error) {
			item := v.String("itemName")
			n, err := count(v, "count")
			if err != nil {
				return nil, err
			}
			table := position(v, "craftingTableX", "craftingTableY", "craftingTableZ")
			return actions.NewAtomicStep("CraftItem", func(ctx context.Context) error {
				return act.Craft(ctx, item, n, table)
			}), nil
		})
}

func takeItemFromFurnace(act actuation.Actuator) actions.Action {
	return actions.MustPredefined("TakeItemFromFurnace", "Take some items from the target furnace",
		[]actions.Parameter{
			number("x", "X coordinate of the furnace"),
			number("y", "Y coordinate of the furnace"),
			number("z", "Z coordinate of the furnace"),
			text("itemType", "Which slot to empty: input, fuel or output"),
		},
		func(v actions.Values, _ actions.Agent) (actions.Body, error) {
			at := position(v, "x", "y", "z")
			slot, err := actuation.ParseFurnaceSlot(v.String("itemType"))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", actions.ErrValidation, err)
			}
			return actions.NewAtomicStep("TakeItemFromFurnace", func(ctx context.Context) error {
				return act.TakeFromFurnace(ctx, at, slot)
			}), nil
		})
}
