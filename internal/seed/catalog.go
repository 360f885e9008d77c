// Package seed holds the question bank loaded into an empty store on first boot.
package seed

import "timed-quiz-service/internal/domain"

// DefaultTimerMinutes is the per-round timer written alongside the seeded bank.
const DefaultTimerMinutes = 25

// Catalog returns a fresh copy of the seeded question bank and round timers.
func Catalog() domain.Catalog {
	return domain.Catalog{
		Questions: Questions(),
		Timers: map[int]int{
			1: DefaultTimerMinutes,
			2: DefaultTimerMinutes,
			3: DefaultTimerMinutes,
			4: DefaultTimerMinutes,
		},
	}
}

// Questions returns the seeded questions ordered by id.
func Questions() []domain.Question {
	return []domain.Question{
		// Round 1: SQL queries
		{
			ID:              1,
			Round:           1,
			Prompt:          "1. Most Frequent Demand Level\n\nSELECT demand_level\nFROM AI_Predictions\nGROUP BY demand_level\nORDER BY COUNT(*) DESC\nLIMIT 1;",
			Kind:            domain.KindFreeText,
			Marks:           10,
			AcceptedAnswers: []string{"High", "high"},
		},
		{
			ID:              2,
			Round:           1,
			Prompt:          "2. Loyalty Level Generating Highest Revenue\n\nSELECT c.loyalty_level\nFROM Customers c\nJOIN Orders o ON c.customer_id = o.customer_id\nGROUP BY c.loyalty_level\nORDER BY SUM(o.total_amount) DESC\nLIMIT 1;",
			Kind:            domain.KindFreeText,
			Marks:           10,
			AcceptedAnswers: []string{"Platinum", "platinum"},
		},
		// Round 2: algorithms
		{
			ID:    3,
			Round: 2,
			Prompt: "Logic Reconstruction\n\nArrange the shuffled steps to form an algorithm that determines the minimum number of platforms required at a railway station so that no train has to wait.\n\n" +
				"A. Initialize platforms_needed = 0 and max_platforms = 0\nB. If next arrival time <= next departure time\nC. Increment platforms_needed\nD. Decrement platforms_needed\n" +
				"E. Sort arrival[] and departure[] arrays separately\nF. Move arrival pointer forward\nG. Move departure pointer forward\nH. Update max_platforms = max(max_platforms, platforms_needed)\n" +
				"I. Start\nJ. While both pointers are within array length\nK. Stop and print max_platforms\nL. Initialize two pointers i = 0, j = 0\n\nWrite the correct sequence.",
			Kind:            domain.KindFreeText,
			Marks:           10,
			AcceptedAnswers: []string{"IEALJBCHFDGK", "I,E,A,L,J,B,C,H,F,D,G,K", "I E A L J B C H F D G K"},
		},
		{
			ID:              4,
			Round:           2,
			Prompt:          "DSA Problem - Question 2\n\nWhat is the output of the following code snippet?\n\nint main() {\n    static int x = 0;\n    if(x++ < 3) {\n        printf(\"hi \");\n        main();\n    }\n}",
			Kind:            domain.KindMultipleChoice,
			Options:         []string{"hi", "hihihi", "hihihihi", `Infinite "hi" until crash`},
			Marks:           10,
			AcceptedAnswers: []string{"hihihi"},
		},
		// Round 3: scheduling
		{
			ID:              5,
			Round:           3,
			Prompt:          "1. Identify the Scheduling Algorithm\n\nA single server runs one job at a time. The job with the shortest remaining processing time is always selected; a newly arrived shorter job preempts the running one; ties go to the earlier arrival.\n\nWhat is the name of this scheduling algorithm?",
			Kind:            domain.KindFreeText,
			Marks:           10,
			AcceptedAnswers: []string{"Shortest Remaining Time First", "SRTF", "shortest remaining time first", "srtf"},
		},
		{
			ID:              6,
			Round:           3,
			Prompt:          "2. Find the Average Waiting Time\n\nJobs (arrival ms, processing ms): J1 (0, 7), J2 (2, 4), J3 (4, 1), J4 (5, 4), J5 (6, 2).\n\nUsing SRTF scheduling, calculate the Average Waiting Time for all five jobs.",
			Kind:            domain.KindFreeText,
			Marks:           10,
			AcceptedAnswers: []string{"3.4", "3.4ms", "3.4 ms"},
		},
		{
			ID:              7,
			Round:           3,
			Prompt:          "3. Find the Average Turnaround Time\n\nJobs (arrival ms, processing ms): J1 (0, 7), J2 (2, 4), J3 (4, 1), J4 (5, 4), J5 (6, 2).\n\nUsing SRTF scheduling, calculate the Average Turnaround Time for all five jobs.",
			Kind:            domain.KindFreeText,
			Marks:           10,
			AcceptedAnswers: []string{"7", "7.0", "7ms", "7 ms", "7 milliseconds"},
		},
		{
			ID:              8,
			Round:           3,
			Prompt:          "4. Technical Name\n\nA server uses SRTF. Thousands of 1ms status checks arrive every millisecond while a single 10GB backup task has waited 24 hours without running.\n\nWhat is the technical name for the condition the backup task is experiencing?",
			Kind:            domain.KindFreeText,
			Marks:           10,
			AcceptedAnswers: []string{"Starvation", "starvation", "Process Starvation", "process starvation", "Indefinite Blocking", "indefinite blocking"},
		},
		// Round 4: flowcharts
		{
			ID:              9,
			Round:           4,
			Prompt:          "Question 1: Refer to Flowchart 1\n\nSelect suitable input and describe the final output of Flowchart 1 in textual format.",
			Kind:            domain.KindFreeText,
			Marks:           10,
			AcceptedAnswers: []string{"Right Angle Triangle", "right angle triangle", "Right angle triangle"},
		},
		{
			ID:              10,
			Round:           4,
			Prompt:          "Question 2: Refer to Flowchart 2\n\nWhat is Flowchart 2 designed to determine?\nWhere N = 153",
			Kind:            domain.KindFreeText,
			Marks:           10,
			AcceptedAnswers: []string{"Armstrong Number", "armstrong number", "Armstrong", "armstrong", "Narcissistic Number", "narcissistic number"},
		},
	}
}
