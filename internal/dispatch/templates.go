package dispatch

import (
	"fmt"
	"strings"
	"text/template"
)

var searchTaskTemplate = template.Must(template.New("search").Parse(`
0. Start by going to: https://www.ubereats.com/
1. Look for the address/location input field (usually at the top of the page)
2. Click on the address field and clear any existing text
3. Type "{{.Address}}" and wait 2 seconds for autocomplete suggestions
4. Press Enter or click the first suggestion to set the delivery location
5. Wait 3 seconds for the page to load with restaurants for this location
6. Find the search bar for food/restaurants (usually near the top)
7. Type "{{.FoodCraving}}" in the search bar and press Enter
8. Wait 3 seconds for search results to load
9. Scroll down to see more options if needed
10. Collect the following information for the top 10 items/dishes you find:
    - Restaurant name
    - Item/dish name
    - Price
    - Rating (if visible)
    - Delivery time estimate (if visible)
    - Direct URL to the item
11. Format the results as a clear list with all details for each of the 10 options
`))

var orderTaskTemplate = template.Must(template.New("order").Parse(`
1. Go to {{.ItemURL}}
2. Click "Add to order"
3. Wait 3 seconds
4. Click "Go to checkout"
5. If there are upsell modals, click "Skip"
6. Click "Place order"
`))

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s task: %w", t.Name(), err)
	}
	return b.String(), nil
}
